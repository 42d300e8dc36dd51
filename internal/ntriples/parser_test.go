package ntriples

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int // number of triples expected
		wantErr  bool
	}{
		{
			name: "simple triple",
			input: `<http://example.org/s> <http://example.org/p> <http://example.org/o> .
`,
			expected: 1,
			wantErr:  false,
		},
		{
			name: "fourth term is a parse error",
			input: `<http://example.org/s> <http://example.org/p> <http://example.org/o> <http://example.org/g> .
`,
			wantErr: true,
		},
		{
			name: "multiple triples",
			input: `<http://example.org/s1> <http://example.org/p1> "literal1" .
<http://example.org/s2> <http://example.org/p2> "literal2"^^<http://www.w3.org/2001/XMLSchema#string> .
<http://example.org/s3> <http://example.org/p3> "hello"@en .
`,
			expected: 3,
			wantErr:  false,
		},
		{
			name: "with PREFIX",
			input: `PREFIX ex: <http://example.org/>
ex:s ex:p ex:o .
`,
			expected: 1,
			wantErr:  false,
		},
		{
			name: "blank nodes",
			input: `_:b1 <http://example.org/p> "value" .
<http://example.org/s> <http://example.org/p> _:b2 .
`,
			expected: 2,
			wantErr:  false,
		},
		{
			name: "numeric literals",
			input: `<http://example.org/s> <http://example.org/p> 42 .
<http://example.org/s2> <http://example.org/p2> 3.14 .
`,
			expected: 2,
			wantErr:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParser(tt.input)
			triples, err := parser.Parse()

			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got none")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if len(triples) != tt.expected {
				t.Errorf("expected %d triples, got %d", tt.expected, len(triples))
			}

			for i, triple := range triples {
				if triple == nil {
					t.Errorf("triple %d is nil", i)
					continue
				}
				if triple.Subject == nil {
					t.Errorf("triple %d has nil subject", i)
				}
				if triple.Predicate == nil {
					t.Errorf("triple %d has nil predicate", i)
				}
				if triple.Object == nil {
					t.Errorf("triple %d has nil object", i)
				}
			}
		})
	}
}

func TestParse_AtPrefixAndBase(t *testing.T) {
	input := `@prefix ex: <http://example.org/> .
@base <http://example.org/base/> .
ex:s ex:p ex:o .
`
	parser := NewParser(input)
	triples, err := parser.Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(triples) != 1 {
		t.Fatalf("expected 1 triple, got %d", len(triples))
	}
	if triples[0].Subject.String() != "<http://example.org/s>" {
		t.Errorf("unexpected subject: %s", triples[0].Subject.String())
	}
}

func TestParse_UndefinedPrefix(t *testing.T) {
	input := `ex:s ex:p ex:o .
`
	parser := NewParser(input)
	_, err := parser.Parse()
	if err == nil {
		t.Error("expected error for undefined prefix, got none")
	}
}

func TestParse_Comments(t *testing.T) {
	input := `# a comment
<http://example.org/s> <http://example.org/p> <http://example.org/o> . # trailing comment after the final dot
`
	parser := NewParser(input)
	triples, err := parser.Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(triples) != 1 {
		t.Fatalf("expected 1 triple, got %d", len(triples))
	}
}
