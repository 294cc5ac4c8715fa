package bib

import (
	"bytes"
	"encoding/json"
	"os/exec"
	"sort"
	"strings"
)

// Direction selects which way the external converter translates.
type Direction string

const (
	// BibToCSL converts BibTeX text to a CSL JSON record list.
	BibToCSL Direction = "bibtex-to-csljson"
	// CSLToBib converts a CSL JSON record list to BibTeX text.
	CSLToBib Direction = "csljson-to-bibtex"
)

// DefaultConverterCommand is the external converter binary invoked for
// encoding translation.
const DefaultConverterCommand = "pandoc"

// Converter shells out to a trusted external tool for translating between
// the two bibliographic text encodings. No retry: a failed conversion
// surfaces as a ConversionError carrying the offending input.
type Converter struct {
	command string
}

// NewConverter creates a converter around the given command.
// An empty command selects DefaultConverterCommand.
func NewConverter(command string) *Converter {
	if command == "" {
		command = DefaultConverterCommand
	}
	return &Converter{command: command}
}

// Convert translates text in the given direction. The input is fed on
// stdin; the converter's stdout is the result.
func (converter *Converter) Convert(text string, direction Direction) (string, error) {
	var args []string
	switch direction {
	case BibToCSL:
		args = []string{"-f", "bibtex", "-t", "csljson"}
	case CSLToBib:
		args = []string{"-f", "csljson", "-t", "bibtex"}
	default:
		return "", &ConversionError{Direction: direction, Input: text, Reason: "unknown conversion direction"}
	}

	cmd := exec.Command(converter.command, args...)
	cmd.Stdin = strings.NewReader(text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		reason := strings.TrimSpace(stderr.String())
		if reason == "" {
			reason = "converter exited with an error"
		}
		return "", &ConversionError{Direction: direction, Input: text, Reason: reason, Err: err}
	}
	return stdout.String(), nil
}

// ParseRecords converts BibTeX text to CSL JSON and decodes the resulting
// record list. Converter output that fails to decode is a ConversionError.
func (converter *Converter) ParseRecords(bibtex string) ([]Record, error) {
	cslJSON, err := converter.Convert(bibtex, BibToCSL)
	if err != nil {
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal([]byte(cslJSON), &records); err != nil {
		return nil, &ConversionError{Direction: BibToCSL, Input: bibtex, Reason: "converter emitted unparsable output", Err: err}
	}
	return records, nil
}

// RenderRecords serializes CSL records back to BibTeX text via the reverse
// conversion. Records are sorted by id so the output is stable across runs.
func (converter *Converter) RenderRecords(records []Record) (string, error) {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID() < sorted[j].ID() })

	cslJSON, err := json.Marshal(sorted)
	if err != nil {
		return "", &ConversionError{Direction: CSLToBib, Reason: "failed to encode records", Err: err}
	}
	return converter.Convert(string(cslJSON), CSLToBib)
}
