package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sesamestream/sesamestream/internal/model"
	"github.com/sesamestream/sesamestream/internal/sparqllite"
	"github.com/sesamestream/sesamestream/pkg/config"
	"github.com/sesamestream/sesamestream/pkg/query"
	"github.com/sesamestream/sesamestream/pkg/rdf"
)

// groundTriple builds a ground (IRI, IRI, IRI) pattern for the demo
// scenarios.
func groundTriple(s, p, o string) *model.Pattern {
	return model.NewPattern(
		model.NewConstant(rdf.NewNamedNode(s)),
		model.NewConstant(rdf.NewNamedNode(p)),
		model.NewConstant(rdf.NewNamedNode(o)),
	)
}

// groundLiteralTriple is groundTriple with a plain literal object.
func groundLiteralTriple(s, p, objectLiteral string) *model.Pattern {
	return model.NewPattern(
		model.NewConstant(rdf.NewNamedNode(s)),
		model.NewConstant(rdf.NewNamedNode(p)),
		model.NewConstant(rdf.NewLiteral(objectLiteral)),
	)
}

// runDemo walks through spec.md's S1-S6 scenarios against a fresh index
// each, printing what the handler received. It is a narrated,
// human-readable counterpart to pkg/index's scenario tests, not a
// substitute for them.
func runDemo(cfg *config.Config, logger *zap.Logger) {
	fmt.Println("=== SesameStream demo ===")
	demoS1(cfg, logger)
	demoS2(cfg, logger)
	demoS3(cfg, logger)
	demoS4(cfg, logger)
	demoS5(cfg, logger)
	demoS6(cfg, logger)
	fmt.Println("=== demo complete ===")
}

func printSolution(label string, result map[string]rdf.Term) {
	fmt.Printf("  [%s] ", label)
	first := true
	for k, v := range result {
		if !first {
			fmt.Print(", ")
		}
		first = false
		fmt.Printf("?%s=%s", k, v.String())
	}
	fmt.Println()
}

func demoS1(cfg *config.Config, logger *zap.Logger) {
	fmt.Println("\n-- S1: single triple pattern --")
	e, err := buildEngine(cfg, logger)
	if err != nil {
		fmt.Printf("  setup failed: %v\n", err)
		return
	}
	defer e.Shutdown()

	q, err := sparqllite.Parse(`SELECT ?s WHERE { ?s <http://ex/p> <http://ex/o> }`)
	if err != nil {
		fmt.Printf("  parse failed: %v\n", err)
		return
	}
	_, err = e.Index.AddQuery(0, q, func(result map[string]rdf.Term) {
		printSolution("S1", result)
	})
	if err != nil {
		fmt.Printf("  addQuery failed: %v\n", err)
		return
	}

	e.Index.AddStatement(0, groundTriple("http://ex/a", "http://ex/p", "http://ex/o"))
	e.Index.AddStatement(0, groundTriple("http://ex/b", "http://ex/p", "http://ex/o2"))
	e.Index.AddStatement(0, groundTriple("http://ex/c", "http://ex/p", "http://ex/o"))
}

func demoS2(cfg *config.Config, logger *zap.Logger) {
	fmt.Println("\n-- S2: two-pattern join --")
	e, err := buildEngine(cfg, logger)
	if err != nil {
		fmt.Printf("  setup failed: %v\n", err)
		return
	}
	defer e.Shutdown()

	q, err := sparqllite.Parse(`SELECT ?x ?y WHERE { ?x <http://ex/knows> ?y . ?y <http://ex/age> "30" }`)
	if err != nil {
		fmt.Printf("  parse failed: %v\n", err)
		return
	}
	_, err = e.Index.AddQuery(0, q, func(result map[string]rdf.Term) {
		printSolution("S2", result)
	})
	if err != nil {
		fmt.Printf("  addQuery failed: %v\n", err)
		return
	}

	e.Index.AddStatement(0, groundTriple("http://ex/A", "http://ex/knows", "http://ex/B"))
	e.Index.AddStatement(0, groundLiteralTriple("http://ex/B", "http://ex/age", "30"))
	e.Index.AddStatement(0, groundLiteralTriple("http://ex/B", "http://ex/age", "30"))
}

func demoS3(cfg *config.Config, logger *zap.Logger) {
	fmt.Println("\n-- S3: join in reverse arrival order --")
	e, err := buildEngine(cfg, logger)
	if err != nil {
		fmt.Printf("  setup failed: %v\n", err)
		return
	}
	defer e.Shutdown()

	q, err := sparqllite.Parse(`SELECT ?x ?y WHERE { ?x <http://ex/knows> ?y . ?y <http://ex/age> "30" }`)
	if err != nil {
		fmt.Printf("  parse failed: %v\n", err)
		return
	}
	_, err = e.Index.AddQuery(0, q, func(result map[string]rdf.Term) {
		printSolution("S3", result)
	})
	if err != nil {
		fmt.Printf("  addQuery failed: %v\n", err)
		return
	}

	e.Index.AddStatement(0, groundLiteralTriple("http://ex/B", "http://ex/age", "30"))
	e.Index.AddStatement(0, groundTriple("http://ex/A", "http://ex/knows", "http://ex/B"))
}

func demoS4(cfg *config.Config, logger *zap.Logger) {
	fmt.Println("\n-- S4: TTL expiry --")
	e, err := buildEngine(cfg, logger)
	if err != nil {
		fmt.Printf("  setup failed: %v\n", err)
		return
	}
	defer e.Shutdown()

	clock := int64(0)
	e.Index.SetClock(func() int64 { return clock })

	q, err := sparqllite.Parse(`SELECT ?x ?y WHERE { ?x <http://ex/knows> ?y . ?y <http://ex/age> "30" }`)
	if err != nil {
		fmt.Printf("  parse failed: %v\n", err)
		return
	}
	_, err = e.Index.AddQuery(10, q, func(result map[string]rdf.Term) {
		printSolution("S4", result)
	})
	if err != nil {
		fmt.Printf("  addQuery failed: %v\n", err)
		return
	}

	clock = 1
	e.Index.AddStatement(5, groundTriple("http://ex/A", "http://ex/knows", "http://ex/B"))
	clock = 7
	e.Index.Reap(clock)
	e.Index.AddStatement(5, groundLiteralTriple("http://ex/B", "http://ex/age", "30"))
	fmt.Println("  (expected: no solution above — the first triple expired at t=6)")
}

func demoS5(cfg *config.Config, logger *zap.Logger) {
	fmt.Println("\n-- S5: renewal --")
	e, err := buildEngine(cfg, logger)
	if err != nil {
		fmt.Printf("  setup failed: %v\n", err)
		return
	}
	defer e.Shutdown()

	clock := int64(0)
	e.Index.SetClock(func() int64 { return clock })

	q, err := sparqllite.Parse(`SELECT ?s WHERE { ?s <http://ex/p> <http://ex/o> }`)
	if err != nil {
		fmt.Printf("  parse failed: %v\n", err)
		return
	}
	sub, err := e.Index.AddQuery(5, q, func(result map[string]rdf.Term) {
		printSolution("S5", result)
	})
	if err != nil {
		fmt.Printf("  addQuery failed: %v\n", err)
		return
	}

	clock = 4
	sub.Renew(10)
	clock = 9
	e.Index.AddStatement(0, groundTriple("http://ex/a", "http://ex/p", "http://ex/o"))
	fmt.Println("  (expected: one solution above — renewal kept the query alive past its original TTL)")
}

func demoS6(cfg *config.Config, logger *zap.Logger) {
	fmt.Println("\n-- S6: cancellation race --")
	e, err := buildEngine(cfg, logger)
	if err != nil {
		fmt.Printf("  setup failed: %v\n", err)
		return
	}
	defer e.Shutdown()

	q, err := sparqllite.Parse(`SELECT ?s WHERE {
		?s <http://ex/p1> <http://ex/o1> .
		?s <http://ex/p2> <http://ex/o2> .
		?s <http://ex/p3> <http://ex/o3>
	}`)
	if err != nil {
		fmt.Printf("  parse failed: %v\n", err)
		return
	}
	solutions := 0
	var sub *query.Subscription
	sub, err = e.Index.AddQuery(0, q, func(result map[string]rdf.Term) {
		solutions++
		printSolution("S6", result)
		sub.Cancel()
	})
	if err != nil {
		fmt.Printf("  addQuery failed: %v\n", err)
		return
	}

	e.Index.AddStatement(0, groundTriple("http://ex/x", "http://ex/p1", "http://ex/o1"))
	e.Index.AddStatement(0, groundTriple("http://ex/x", "http://ex/p2", "http://ex/o2"))
	e.Index.AddStatement(0, groundTriple("http://ex/x", "http://ex/p3", "http://ex/o3"))
	// The handler above cancelled its own subscription on the first
	// solution; re-ingesting the same final triple must not produce a
	// second one.
	e.Index.AddStatement(0, groundTriple("http://ex/x", "http://ex/p3", "http://ex/o3"))
	fmt.Printf("  total solutions delivered: %d (expected 1)\n", solutions)
}
