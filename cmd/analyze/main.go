// Command analyze replays persisted votes through the consensus
// protocol and prints the validation and independence reports. No
// rater is contacted; everything comes from the database.
//
// Usage:
//
//	go run ./cmd/analyze \
//	  --db ~/.medboard/medboard.db \
//	  --answer-key ./data/answer_key.json \
//	  --questions ./data/questions.json \
//	  --mode vanilla \
//	  --output ./reports
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xerk-dot/medboard"
	"github.com/xerk-dot/medboard/bank"
	"github.com/xerk-dot/medboard/report"
)

func main() {
	var (
		dbPath       = flag.String("db", "", "Path to SQLite database (default: ~/.medboard/medboard.db)")
		keyFile      = flag.String("answer-key", "", "Path to answer key JSON")
		questionFile = flag.String("questions", "", "Path to question bank JSON (optional, enables per-category accuracy)")
		mode         = flag.String("mode", "vanilla", "Which run to analyze: vanilla, enhanced")
		firstThresh  = flag.Float64("threshold-1", 0.70, "Round 1 agreement threshold")
		laterThresh  = flag.Float64("threshold-2", 0.85, "Round 2+ agreement threshold")
		maxRounds    = flag.Int("max-rounds", 2, "Maximum voting rounds")
		outDir       = flag.String("output", "", "Directory for JSON and XLSX reports (default: none written)")
		listSessions = flag.Bool("sessions", false, "List stored sessions and exit")
		verbose      = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := medboard.DefaultConfig()
	cfg.DBPath = *dbPath
	cfg.Mode = *mode
	cfg.Voting.FirstRoundThreshold = *firstThresh
	cfg.Voting.LaterRoundThreshold = *laterThresh
	cfg.Voting.MaxRounds = *maxRounds

	board, err := medboard.New(cfg)
	if err != nil {
		log.Fatalf("opening board: %v", err)
	}
	defer board.Close()

	ctx := context.Background()

	if *listSessions {
		printSessions(ctx, board)
		return
	}

	out, set, err := board.Replay(ctx)
	if err != nil {
		log.Fatalf("replaying votes: %v", err)
	}
	fmt.Println(report.FormatConsensus(out))

	if *keyFile == "" {
		return
	}
	answerKey, err := bank.LoadAnswerKey(*keyFile)
	if err != nil {
		log.Fatalf("loading answer key: %v", err)
	}

	var questions []bank.Question
	if *questionFile != "" {
		questions, err = bank.LoadQuestions(*questionFile)
		if err != nil {
			log.Fatalf("loading questions: %v", err)
		}
	}

	sc, err := board.Score(ctx, out, set, answerKey, questions)
	if err != nil {
		log.Fatalf("scoring run: %v", err)
	}
	fmt.Println(report.FormatValidation(sc.Validation))
	fmt.Println(report.FormatIndependence(sc.Independence))
	fmt.Println(report.FormatSelfCorrection(sc.SelfCorrection))

	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0755); err != nil {
			log.Fatalf("creating output directory: %v", err)
		}
		if err := report.WriteJSON(filepath.Join(*outDir, "scorecard.json"), sc); err != nil {
			log.Fatalf("writing scorecard: %v", err)
		}
		if err := report.WriteWorkbook(filepath.Join(*outDir, "report.xlsx"), out, sc.Validation, sc.Independence); err != nil {
			log.Fatalf("writing workbook: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Reports written to %s\n", *outDir)
	}
}

func printSessions(ctx context.Context, board *medboard.Board) {
	sessions, err := board.Store().ListSessions(ctx)
	if err != nil {
		log.Fatalf("listing sessions: %v", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions stored.")
		return
	}
	fmt.Printf("%-6s %-20s %-10s %-6s %s\n", "ID", "Rater", "Mode", "Round", "Created")
	for _, s := range sessions {
		fmt.Printf("%-6d %-20s %-10s %-6d %s\n", s.ID, s.RaterID, s.Mode, s.Round, s.CreatedAt)
	}
}
