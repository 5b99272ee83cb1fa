// Command board runs the full consensus voting protocol over a
// question bank and prints the consensus, validation, and independence
// reports.
//
// Vanilla run over a JSON question bank:
//
//	go run ./cmd/board \
//	  --questions ./data/questions.json \
//	  --answer-key ./data/answer_key.json
//
// Enhanced run (code-reference enrichment) straight from an exam PDF:
//
//	go run ./cmd/board \
//	  --pdf ./data/exam.pdf \
//	  --answer-key ./data/answer_key.json \
//	  --mode enhanced \
//	  --code-refs ./data/code_refs.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/xerk-dot/medboard"
	"github.com/xerk-dot/medboard/analysis"
	"github.com/xerk-dot/medboard/bank"
	"github.com/xerk-dot/medboard/consensus"
	"github.com/xerk-dot/medboard/report"
	"github.com/xerk-dot/medboard/store"
	"github.com/xerk-dot/medboard/validation"
)

func main() {
	var (
		pdfPath      = flag.String("pdf", "", "Path to exam PDF to extract questions from")
		questionFile = flag.String("questions", "", "Path to question bank JSON (alternative to --pdf)")
		keyFile      = flag.String("answer-key", "", "Path to answer key JSON (question number -> choice)")
		mode         = flag.String("mode", "vanilla", "Prompt mode: vanilla, enhanced")
		count        = flag.Int("count", 0, "Number of questions to select from the bank (0=all)")
		dbPath       = flag.String("db", "", "Path to SQLite database (default: ~/.medboard/medboard.db)")
		chatProvider = flag.String("chat-provider", "openrouter", "Chat LLM provider: openrouter, openai, custom")
		chatBaseURL  = flag.String("chat-base-url", "", "Chat provider base URL override")
		apiKey       = flag.String("api-key", "", "Chat provider API key (default: from env)")
		embedModel   = flag.String("embed-model", "openai/text-embedding-3-small", "Embedding model for enhanced mode")
		embedDim     = flag.Int("embed-dim", 1536, "Embedding dimension")
		codeRefs     = flag.String("code-refs", "", "Path to code reference JSON to (re)index before an enhanced run")
		firstThresh  = flag.Float64("threshold-1", 0.70, "Round 1 agreement threshold")
		laterThresh  = flag.Float64("threshold-2", 0.85, "Round 2+ agreement threshold")
		maxRounds    = flag.Int("max-rounds", 2, "Maximum voting rounds")
		workers      = flag.Int("workers", 10, "Max concurrent LLM requests")
		outDir       = flag.String("output", "", "Directory for JSON and XLSX reports (default: none written)")
		verbose      = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *pdfPath == "" && *questionFile == "" {
		log.Fatal("one of --pdf or --questions is required")
	}

	key := *apiKey
	if key == "" {
		switch *chatProvider {
		case "openrouter":
			key = os.Getenv("OPENROUTER_API_KEY")
		case "openai":
			key = os.Getenv("OPENAI_API_KEY")
		}
	}
	if key == "" {
		log.Fatalf("API key required for provider %q: set --api-key or the appropriate env var", *chatProvider)
	}

	cfg := medboard.DefaultConfig()
	cfg.DBPath = *dbPath
	cfg.Mode = *mode
	cfg.Workers = *workers
	cfg.EmbeddingDim = *embedDim
	cfg.Voting.FirstRoundThreshold = *firstThresh
	cfg.Voting.LaterRoundThreshold = *laterThresh
	cfg.Voting.MaxRounds = *maxRounds
	cfg.Chat.Provider = *chatProvider
	cfg.Chat.BaseURL = *chatBaseURL
	cfg.Chat.APIKey = key
	cfg.Embedding.Provider = *chatProvider
	cfg.Embedding.BaseURL = *chatBaseURL
	cfg.Embedding.APIKey = key
	cfg.Embedding.Model = *embedModel

	board, err := medboard.New(cfg)
	if err != nil {
		log.Fatalf("creating board: %v", err)
	}
	defer board.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	questions := loadQuestions(*pdfPath, *questionFile)
	if *count > 0 {
		questions = bank.Select(questions, *count)
	}
	fmt.Fprintf(os.Stderr, "Question bank: %d questions\n", len(questions))

	if *codeRefs != "" {
		refs := loadCodeRefs(*codeRefs)
		fmt.Fprintf(os.Stderr, "Indexing %d code references...\n", len(refs))
		if err := board.IndexCodeRefs(ctx, refs); err != nil {
			log.Fatalf("indexing code references: %v", err)
		}
	}

	start := time.Now()
	out, set, err := board.RunProtocol(ctx, questions)
	if err != nil {
		log.Fatalf("running protocol: %v", err)
	}
	fmt.Fprintf(os.Stderr, "Protocol finished in %s\n\n", time.Since(start).Round(time.Second))

	fmt.Println(report.FormatConsensus(out))

	var sc *medboard.Scorecard
	if *keyFile != "" {
		answerKey, err := bank.LoadAnswerKey(*keyFile)
		if err != nil {
			log.Fatalf("loading answer key: %v", err)
		}
		sc, err = board.Score(ctx, out, set, answerKey, questions)
		if err != nil {
			log.Fatalf("scoring run: %v", err)
		}
		fmt.Println(report.FormatValidation(sc.Validation))
		fmt.Println(report.FormatIndependence(sc.Independence))
		fmt.Println(report.FormatSelfCorrection(sc.SelfCorrection))
	}

	if *outDir != "" {
		writeArtifacts(*outDir, out, sc)
	}
}

// loadQuestions reads the bank from a PDF or a JSON file.
func loadQuestions(pdfPath, questionFile string) []bank.Question {
	if pdfPath != "" {
		questions, err := bank.ExtractQuestions(pdfPath)
		if err != nil {
			log.Fatalf("extracting questions from PDF: %v", err)
		}
		return questions
	}
	questions, err := bank.LoadQuestions(questionFile)
	if err != nil {
		log.Fatalf("loading questions: %v", err)
	}
	return questions
}

func loadCodeRefs(path string) []store.CodeRef {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("reading code references: %v", err)
	}
	var refs []store.CodeRef
	if err := json.Unmarshal(data, &refs); err != nil {
		log.Fatalf("parsing code references: %v", err)
	}
	return refs
}

func writeArtifacts(dir string, out *consensus.Outcome, sc *medboard.Scorecard) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Fatalf("creating output directory: %v", err)
	}
	if err := report.WriteJSON(filepath.Join(dir, "consensus.json"), out); err != nil {
		log.Fatalf("writing consensus report: %v", err)
	}

	var vr *validation.Report
	var indep analysis.Result
	if sc != nil {
		if err := report.WriteJSON(filepath.Join(dir, "scorecard.json"), sc); err != nil {
			log.Fatalf("writing scorecard: %v", err)
		}
		vr = sc.Validation
		indep = sc.Independence
	}
	if err := report.WriteWorkbook(filepath.Join(dir, "report.xlsx"), out, vr, indep); err != nil {
		log.Fatalf("writing workbook: %v", err)
	}
	fmt.Fprintf(os.Stderr, "Reports written to %s\n", dir)
}
