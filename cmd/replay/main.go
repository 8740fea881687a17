// courtside-replay replays a sequence of historical match results
// through the rating engine and prints the resulting ladder. Useful for
// seeding ratings from an archive and for sanity-checking tuning
// changes before they ship.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tbreck/courtside/pkg/engine"
	"github.com/tbreck/courtside/pkg/engine/names"
	"github.com/tbreck/courtside/pkg/engine/rating"
	"github.com/tbreck/courtside/pkg/engine/tuning"
)

var (
	dataFile      = flag.String("data", "", "Path to historical results file (JSON or CSV)")
	tuningFile    = flag.String("tuning", "", "Optional YAML tuning overrides")
	initialRating = flag.Float64("initial-rating", 1500, "Rating for unseen players")
	outputFile    = flag.String("output", "", "Optional JSON output file for the final ladder")
	verbose       = flag.Bool("verbose", false, "Log every settlement")
)

// matchResult is one historical result row.
type matchResult struct {
	MatchID string `json:"match_id"`
	PlayerA string `json:"player_a"`
	PlayerB string `json:"player_b"`
	ScoreA  int    `json:"score_a"`
	ScoreB  int    `json:"score_b"`
}

func main() {
	flag.Parse()

	if *dataFile == "" {
		log.Fatal("No data file provided (-data results.json)")
	}

	tun := tuning.Default()
	if *tuningFile != "" {
		var err error
		tun, err = tuning.LoadFile(*tuningFile)
		if err != nil {
			log.Fatalf("Failed to load tuning: %v", err)
		}
	}

	results, err := loadResults(*dataFile)
	if err != nil {
		log.Fatalf("Failed to load results: %v", err)
	}
	log.Printf("Loaded %d results from %s", len(results), *dataFile)

	ladder := replay(rating.New(tun), results)
	printLadder(ladder)

	if *outputFile != "" {
		if err := writeLadder(*outputFile, ladder); err != nil {
			log.Fatalf("Failed to write output: %v", err)
		}
		log.Printf("Ladder written to %s", *outputFile)
	}
}

func loadResults(path string) ([]matchResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if strings.HasSuffix(path, ".json") {
		var results []matchResult
		if err := json.Unmarshal(data, &results); err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
		return results, nil
	}

	// CSV: match_id,player_a,player_b,score_a,score_b
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}

	var results []matchResult
	for i, rec := range records {
		if i == 0 && rec[0] == "match_id" {
			continue // header row
		}
		if len(rec) < 5 {
			return nil, fmt.Errorf("row %d: expected 5 columns, got %d", i, len(rec))
		}
		scoreA, err := strconv.Atoi(rec[3])
		if err != nil {
			return nil, fmt.Errorf("row %d: score_a: %w", i, err)
		}
		scoreB, err := strconv.Atoi(rec[4])
		if err != nil {
			return nil, fmt.Errorf("row %d: score_b: %w", i, err)
		}
		results = append(results, matchResult{
			MatchID: rec[0],
			PlayerA: rec[1],
			PlayerB: rec[2],
			ScoreA:  scoreA,
			ScoreB:  scoreB,
		})
	}
	return results, nil
}

func replay(rater *rating.Engine, results []matchResult) []*engine.Player {
	players := make(map[string]*engine.Player)
	lookup := func(name string) *engine.Player {
		key := names.Normalize(name)
		if p, ok := players[key]; ok {
			return p
		}
		p := &engine.Player{ID: key, Name: name, Rating: *initialRating}
		players[key] = p
		return p
	}

	settled, skipped := 0, 0
	for _, r := range results {
		a, b := lookup(r.PlayerA), lookup(r.PlayerB)
		scoreA, scoreB := r.ScoreA, r.ScoreB
		m := &engine.Match{
			ID:        r.MatchID,
			PlayerAID: a.ID,
			PlayerBID: b.ID,
			ScoreA:    &scoreA,
			ScoreB:    &scoreB,
			Status:    engine.StatusFinished,
			StartTime: time.Now(),
		}

		res, err := rater.Settle(m, a, b)
		if err != nil {
			log.Printf("Skipping %s: %v", r.MatchID, err)
			skipped++
			continue
		}
		settled++
		if *verbose {
			log.Printf("%s: %s beats %s (+%.0f), probs %.2f/%.2f",
				r.MatchID, res.WinnerID, res.LoserID, res.Delta, res.ProbA, res.ProbB)
		}
	}
	log.Printf("Replay complete: %d settled, %d skipped", settled, skipped)

	ladder := make([]*engine.Player, 0, len(players))
	for _, p := range players {
		ladder = append(ladder, p)
	}
	sort.Slice(ladder, func(i, j int) bool {
		return ladder[i].Rating > ladder[j].Rating
	})
	return ladder
}

func printLadder(ladder []*engine.Player) {
	fmt.Println()
	fmt.Println("Rank  Rating  Player")
	fmt.Println("----  ------  ------")
	for i, p := range ladder {
		fmt.Printf("%4d  %6.0f  %s\n", i+1, p.Rating, p.Name)
	}
	fmt.Println()
}

func writeLadder(path string, ladder []*engine.Player) error {
	data, err := json.MarshalIndent(ladder, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
