package policy

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

type fileRule struct {
	Extension  string   `yaml:"extension"`
	MIMETypes  []string `yaml:"mimeTypes"`
	MaxSize    string   `yaml:"maxSize"`
	Signatures []string `yaml:"signatures"`
}

type fileTable struct {
	Destinations []string   `yaml:"destinations"`
	Rules        []fileRule `yaml:"rules"`
}

// Load returns the table described by the YAML file at path, or the
// built-in defaults when path is empty.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("policy file %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a YAML policy document. Unknown keys are rejected.
func Parse(data []byte) (*Table, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc fileTable
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("policy document is empty")
		}
		return nil, fmt.Errorf("invalid policy document: %w", err)
	}

	rules := make([]Rule, 0, len(doc.Rules))
	for i, fr := range doc.Rules {
		r, err := fr.rule()
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, fr.Extension, err)
		}
		rules = append(rules, r)
	}

	return New(rules, doc.Destinations)
}

func (fr fileRule) rule() (Rule, error) {
	if strings.TrimSpace(fr.MaxSize) == "" {
		return Rule{}, errors.New("maxSize is required")
	}
	size, err := humanize.ParseBytes(fr.MaxSize)
	if err != nil {
		return Rule{}, fmt.Errorf("invalid maxSize %q: %w", fr.MaxSize, err)
	}
	if size > math.MaxInt64 {
		return Rule{}, fmt.Errorf("maxSize %q is too large", fr.MaxSize)
	}

	sigs := make([][]byte, 0, len(fr.Signatures))
	for _, s := range fr.Signatures {
		sig, err := decodeSignature(s)
		if err != nil {
			return Rule{}, err
		}
		sigs = append(sigs, sig)
	}

	return Rule{
		Extension:  fr.Extension,
		MIMETypes:  fr.MIMETypes,
		MaxSize:    int64(size),
		Signatures: sigs,
	}, nil
}

// decodeSignature accepts hex with an optional 0x prefix and spaces between bytes.
func decodeSignature(s string) ([]byte, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	clean = strings.TrimPrefix(strings.TrimPrefix(clean, "0x"), "0X")

	sig, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid signature %q: %w", s, err)
	}
	return sig, nil
}
