package policy

import (
	"bufio"
	"bytes"
	"embed"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"go/format"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const tableFileVersion = 1

//go:embed schemas
var schemaFiles embed.FS

const schemaURL = "https://blackjack.lox.dev/schemas/table.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func tableSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		data, err := schemaFiles.ReadFile("schemas/table.json")
		if err != nil {
			schemaErr = fmt.Errorf("read table schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(schemaURL, bytes.NewReader(data)); err != nil {
			schemaErr = fmt.Errorf("add table schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
	})
	return schema, schemaErr
}

// Kind distinguishes the two tables that share the layout.
type Kind string

const (
	KindPolicy  Kind = "policy"
	KindWinRate Kind = "winrate"
)

// Validate checks every value against the kind's range.
func (k Kind) Validate(g *Grid) error {
	for i, v := range g.cells {
		switch k {
		case KindPolicy:
			if !ValidCode(v) {
				return fmt.Errorf("cell %+v: invalid policy code %d", StateAt(i), v)
			}
		case KindWinRate:
			if v > 100 {
				return fmt.Errorf("cell %+v: win rate %d exceeds 100", StateAt(i), v)
			}
		default:
			return fmt.Errorf("unknown table kind %q", k)
		}
	}
	return nil
}

// Format is a table serialisation.
type Format string

const (
	FormatJSON   Format = "json"
	FormatCSV    Format = "csv"
	FormatHeader Format = "header"
	FormatGo     Format = "go"
)

// ParseFormat accepts a format name or, when name is empty, infers one from
// the file extension of path.
func ParseFormat(name, path string) (Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json":
			return FormatJSON, nil
		case ".csv":
			return FormatCSV, nil
		case ".h", ".hpp":
			return FormatHeader, nil
		case ".go":
			return FormatGo, nil
		}
		return "", fmt.Errorf("cannot infer table format from %q", path)
	}
	switch Format(name) {
	case FormatJSON, FormatCSV, FormatHeader, FormatGo:
		return Format(name), nil
	}
	return "", fmt.Errorf("unknown table format %q", name)
}

// EncodeOptions controls table serialisation.
type EncodeOptions struct {
	Format  Format
	Kind    Kind
	Name    string            // C array or Go variable name
	Package string            // Go package name
	Meta    map[string]string // JSON only; keys are emitted sorted
}

func (o EncodeOptions) name() string {
	if o.Name != "" {
		return o.Name
	}
	if o.Kind == KindWinRate {
		return "blackjack_winrates"
	}
	return "blackjack_policy"
}

// Encode writes g to w in the requested format. Output depends only on the
// table contents and options, so identical tables encode to identical bytes.
func Encode(w io.Writer, g *Grid, opts EncodeOptions) error {
	switch opts.Format {
	case FormatJSON:
		return encodeJSON(w, g, opts)
	case FormatCSV:
		return encodeCSV(w, g)
	case FormatHeader:
		return encodeHeader(w, g, opts)
	case FormatGo:
		return encodeGo(w, g, opts)
	default:
		return fmt.Errorf("unsupported table format %q", opts.Format)
	}
}

type document struct {
	Version int               `json:"version"`
	Kind    Kind              `json:"kind"`
	Dims    [4]int            `json:"dims"`
	Meta    map[string]string `json:"meta,omitempty"`
	Cells   [][][][]int       `json:"cells"`
}

func encodeJSON(w io.Writer, g *Grid, opts EncodeOptions) error {
	kind := opts.Kind
	if kind == "" {
		kind = KindPolicy
	}
	doc := document{
		Version: tableFileVersion,
		Kind:    kind,
		Dims:    Dims,
		Meta:    opts.Meta,
		Cells:   make([][][][]int, Totals),
	}
	for t := 0; t < Totals; t++ {
		doc.Cells[t] = make([][][]int, SoftStates)
		for s := 0; s < SoftStates; s++ {
			doc.Cells[t][s] = make([][]int, Upcards)
			for u := 0; u < Upcards; u++ {
				row := make([]int, CountBuckets)
				for c := 0; c < CountBuckets; c++ {
					row[c] = int(g.At(t, s == 1, u, c))
				}
				doc.Cells[t][s][u] = row
			}
		}
	}
	enc := json.NewEncoder(w)
	return enc.Encode(doc)
}

// DecodeJSON reads a JSON table, validating it against the embedded schema
// and the value range of its kind.
func DecodeJSON(r io.Reader) (*Grid, Kind, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", err
	}
	sch, err := tableSchema()
	if err != nil {
		return nil, "", err
	}
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, "", fmt.Errorf("invalid JSON: %w", err)
	}
	if err := sch.Validate(raw); err != nil {
		return nil, "", fmt.Errorf("schema validation failed: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, "", err
	}
	if doc.Version != tableFileVersion {
		return nil, "", errors.New("unsupported table version")
	}
	g := &Grid{}
	for t, softs := range doc.Cells {
		for s, ups := range softs {
			for u, counts := range ups {
				for c, v := range counts {
					g.Set(t, s == 1, u, c, uint8(v))
				}
			}
		}
	}
	if err := doc.Kind.Validate(g); err != nil {
		return nil, "", err
	}
	return g, doc.Kind, nil
}

// encodeCSV writes one row per player total with the remaining dimensions
// flattened in layout order (soft, upcard, count).
func encodeCSV(w io.Writer, g *Grid) error {
	cw := csv.NewWriter(w)
	const width = SoftStates * Upcards * CountBuckets
	record := make([]string, width)
	for t := 0; t < Totals; t++ {
		base := Index(t, false, 0, 0)
		for i := 0; i < width; i++ {
			record[i] = strconv.Itoa(int(g.cells[base+i]))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// DecodeCSV reads the 22-row CSV layout written by Encode.
func DecodeCSV(r io.Reader, kind Kind) (*Grid, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = SoftStates * Upcards * CountBuckets
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) != Totals {
		return nil, fmt.Errorf("csv table has %d rows, want %d", len(records), Totals)
	}
	g := &Grid{}
	for t, record := range records {
		base := Index(t, false, 0, 0)
		for i, field := range record {
			v, err := strconv.Atoi(strings.TrimSpace(field))
			if err != nil || v < 0 || v > 255 {
				return nil, fmt.Errorf("row %d column %d: invalid value %q", t, i, field)
			}
			g.cells[base+i] = uint8(v)
		}
	}
	if err := kind.Validate(g); err != nil {
		return nil, err
	}
	return g, nil
}

func encodeHeader(w io.Writer, g *Grid, opts EncodeOptions) error {
	bw := bufio.NewWriter(w)
	name := opts.name()
	guard := strings.ToUpper(name) + "_H"

	fmt.Fprintf(bw, "#ifndef %s\n#define %s\n\n", guard, guard)
	bw.WriteString("#include <stdint.h>\n\n")
	if opts.Kind == KindWinRate {
		bw.WriteString("// Win Rate Table (0 to 100)\n")
		bw.WriteString("// 0 = Loss, 50 = Push, 100 = Win\n")
	} else {
		bw.WriteString("// Policy Table\n")
		bw.WriteString("// 0 = Hit, 1 = Stand, 2 = Double, 3 = Stand, 30/31/32 = Split else Hit/Stand/Double\n")
	}
	fmt.Fprintf(bw, "const uint8_t %s[%d][%d][%d][%d] = {\n", name, Totals, SoftStates, Upcards, CountBuckets)
	for t := 0; t < Totals; t++ {
		fmt.Fprintf(bw, "    // Total %d\n    {\n", t)
		for s := 0; s < SoftStates; s++ {
			bw.WriteString("        {")
			for u := 0; u < Upcards; u++ {
				bw.WriteString("{")
				for c := 0; c < CountBuckets; c++ {
					bw.WriteString(strconv.Itoa(int(g.At(t, s == 1, u, c))))
					if c < CountBuckets-1 {
						bw.WriteString(",")
					}
				}
				bw.WriteString("}")
				if u < Upcards-1 {
					bw.WriteString(",")
				}
			}
			bw.WriteString("}")
			if s < SoftStates-1 {
				bw.WriteString(",")
			}
			bw.WriteString("\n")
		}
		bw.WriteString("    }")
		if t < Totals-1 {
			bw.WriteString(",")
		}
		bw.WriteString("\n")
	}
	bw.WriteString("};\n\n#endif\n")
	return bw.Flush()
}

func encodeGo(w io.Writer, g *Grid, opts EncodeOptions) error {
	pkg := opts.Package
	if pkg == "" {
		pkg = "tables"
	}
	name := goName(opts.name())

	var sb strings.Builder
	sb.WriteString("// Code generated by bjsim; DO NOT EDIT.\n\n")
	fmt.Fprintf(&sb, "package %s\n\n", pkg)
	fmt.Fprintf(&sb, "// %s is indexed by [player total][soft][dealer upcard index][true-count bucket].\n", name)
	fmt.Fprintf(&sb, "var %s = [%d][%d][%d][%d]uint8{\n", name, Totals, SoftStates, Upcards, CountBuckets)
	for t := 0; t < Totals; t++ {
		fmt.Fprintf(&sb, "// Total %d\n{\n", t)
		for s := 0; s < SoftStates; s++ {
			sb.WriteString("{\n")
			for u := 0; u < Upcards; u++ {
				sb.WriteString("{")
				for c := 0; c < CountBuckets; c++ {
					if c > 0 {
						sb.WriteString(", ")
					}
					sb.WriteString(strconv.Itoa(int(g.At(t, s == 1, u, c))))
				}
				sb.WriteString("},\n")
			}
			sb.WriteString("},\n")
		}
		sb.WriteString("},\n")
	}
	sb.WriteString("}\n")

	src, err := format.Source([]byte(sb.String()))
	if err != nil {
		return fmt.Errorf("format generated source: %w", err)
	}
	_, err = w.Write(src)
	return err
}

// goName converts snake_case into an exported Go identifier.
func goName(name string) string {
	var sb strings.Builder
	for _, part := range strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == '-' }) {
		sb.WriteString(strings.ToUpper(part[:1]))
		sb.WriteString(part[1:])
	}
	if sb.Len() == 0 {
		return "Table"
	}
	return sb.String()
}

// Load reads a table file. JSON files carry their own kind, which must match
// want; CSV files are validated against want.
func Load(path string, want Kind) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return DecodeCSV(f, want)
	case ".json":
		g, kind, err := DecodeJSON(f)
		if err != nil {
			return nil, err
		}
		if kind != want {
			return nil, fmt.Errorf("%s holds a %s table, want %s", path, kind, want)
		}
		return g, nil
	default:
		return nil, fmt.Errorf("cannot load table from %q: only .json and .csv are readable", path)
	}
}

// LoadOrBasic loads a policy table from path, or returns the built-in policy
// when path is empty.
func LoadOrBasic(path string) (*Grid, error) {
	if path == "" {
		return Basic(), nil
	}
	return Load(path, KindPolicy)
}

// ParseKind parses a table kind name.
func ParseKind(name string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(name))) {
	case KindPolicy:
		return KindPolicy, nil
	case KindWinRate, "winrates", "win-rate":
		return KindWinRate, nil
	}
	return "", fmt.Errorf("unknown table kind %q", name)
}
