package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/helper"
	"docqa/internal/metrics"
	"docqa/internal/models"
	"docqa/internal/parser"
	"docqa/internal/server"
	"docqa/internal/session"
)

const configFilePath = "./configs/config.yaml"

func main() {
	configPath := flag.String("config", configFilePath, "Path to the YAML config file")
	serve := flag.Bool("serve", false, "Run the HTTP server")
	filePath := flag.String("file", "", "Path to the document file")
	query := flag.String("query", "", "Question to be answered; reads questions from stdin when empty")
	dryRun := flag.Bool("dry-run", false, "Only load and chunk the document, printing the chunks")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if err := helper.SetupLogger(cfg.Log.Level, cfg.Log.Pretty); err != nil {
		log.Fatal().Err(err).Msg("Error configuring logger")
	}
	log.Debug().
		Stringer("embed_llm", cfg.EmbedLLM).
		Stringer("inference_llm", cfg.InferenceLLM).
		Int("chunk_size", cfg.RAG.ChunkSize).
		Int("chunk_overlap", cfg.RAG.ChunkOverlap).
		Msg("Loaded config")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *serve:
		runServer(ctx, cfg)
	case *filePath != "" && *dryRun:
		chunkFile(ctx, cfg, *filePath)
	case *filePath != "":
		askFile(ctx, cfg, *filePath, *query)
	case *query != "":
		log.Fatal().Msg("Please provide the document to query using the -file flag")
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func mustValidate(cfg *config.Config) {
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Error validating config")
	}
}

func runServer(ctx context.Context, cfg *config.Config) {
	mustValidate(cfg)
	rec := metrics.New()
	pipeline, err := session.NewPipeline(ctx, cfg, rec)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing pipeline")
	}
	mgr, err := session.NewManager(pipeline, cfg.Server.SessionIdleTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating session manager")
	}
	if err := server.New(cfg.Server, mgr, rec).Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("HTTP server failed")
	}
}

func readDocument(filePath string) models.Document {
	data, err := os.ReadFile(filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", filePath).Msg("Error reading document")
	}
	return models.Document{
		Name:     filepath.Base(filePath),
		MIMEType: parser.DetectMIME(data),
		Data:     data,
	}
}

// chunkFile loads and chunks the document without embedding it.
func chunkFile(ctx context.Context, cfg *config.Config, filePath string) {
	doc := readDocument(filePath)
	segments, err := parser.NewLoader().Load(ctx, doc)
	if err != nil {
		log.Fatal().Err(err).Msg("Error parsing document")
	}
	splitter, err := chunker.New(cfg.RAG)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating chunker")
	}
	chunks, err := chunker.Chunks(doc.Name, segments, splitter)
	if err != nil {
		log.Fatal().Err(err).Msg("Error chunking document")
	}
	log.Info().Int("segments", len(segments)).Int("chunks", len(chunks)).Msg("Parsed content")
	helper.PrettyPrint(chunks)
}

func askFile(ctx context.Context, cfg *config.Config, filePath, query string) {
	mustValidate(cfg)
	pipeline, err := session.NewPipeline(ctx, cfg, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing pipeline")
	}
	id, err := helper.GenerateUUID()
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating session")
	}
	sess, err := session.New(id, pipeline)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating session")
	}
	if _, err := sess.Upload(ctx, readDocument(filePath)); err != nil {
		log.Fatal().Err(err).Msg("Error indexing document")
	}

	if query != "" {
		ask(ctx, sess, query)
		return
	}
	repl(ctx, sess, os.Stdin, os.Stdout)
}

// repl answers one question per input line until EOF.
func repl(ctx context.Context, sess *session.Session, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if q := strings.TrimSpace(scanner.Text()); q != "" {
			ask(ctx, sess, q)
		}
		fmt.Fprint(out, "> ")
	}
	fmt.Fprintln(out)
}

func ask(ctx context.Context, sess *session.Session, query string) {
	turn, err := sess.Ask(ctx, query)
	if err != nil {
		log.Error().Err(err).Msg("Error answering question")
		return
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", turn.Question)

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", turn.Answer)
}
