package repository

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/okian/podium/internal/domain/distribution"
	"github.com/okian/podium/internal/domain/model"
)

// ReadDistribution decodes a {"<score>": <multiplicity>} object. Multiplicities
// may be JSON integers of any size or decimal strings.
func ReadDistribution(r io.Reader) (distribution.Multiplicities, error) {
	const op = "repository.read_distribution"
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, decodeErr(op, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w: not an object", op, ErrMalformed)
	}

	m := make(distribution.Multiplicities, len(raw))
	for key, val := range raw {
		score, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: score %q is not an integer", op, ErrMalformed, key)
		}
		var digits string
		switch v := val.(type) {
		case json.Number:
			digits = v.String()
		case string:
			digits = v
		default:
			return nil, fmt.Errorf("%s: %w: score %d has a %T multiplicity", op, ErrMalformed, score, val)
		}
		n, ok := new(big.Int).SetString(digits, 10)
		if !ok {
			return nil, fmt.Errorf("%s: %w: score %d multiplicity %q is not an integer", op, ErrMalformed, score, digits)
		}
		if _, dup := m[score]; dup {
			return nil, fmt.Errorf("%s: %w: score %d listed twice", op, ErrMalformed, score)
		}
		m[score] = n
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return m, nil
}

// WriteDistribution encodes m as a JSON object with scores in ascending order
// and multiplicities as bare integers.
func WriteDistribution(w io.Writer, m distribution.Multiplicities) error {
	bw := bufio.NewWriter(w)
	_, _ = bw.WriteString("{")
	for i, s := range m.Scores() {
		if i > 0 {
			_, _ = bw.WriteString(", ")
		}
		_, _ = fmt.Fprintf(bw, "%q: %s", strconv.FormatInt(s, 10), m[s].String())
	}
	_, _ = bw.WriteString("}\n")
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("repository.write_distribution: %w", err)
	}
	return nil
}

// ReadTeams decodes a {"<name>": <starting score>} object, keeping the order the
// teams appear in. Duplicate names are rejected.
func ReadTeams(r io.Reader) (model.Teams, error) {
	const op = "repository.read_teams"
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return nil, decodeErr(op, err)
	}
	var teams model.Teams
	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, decodeErr(op, err)
		}
		name, _ := tok.(string)
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%s: team %q listed twice: %w", op, name, model.ErrInvalidArgument)
		}
		seen[name] = struct{}{}

		var score json.Number
		if err := dec.Decode(&score); err != nil {
			return nil, decodeErr(op, err)
		}
		f, err := score.Float64()
		if err != nil {
			return nil, fmt.Errorf("%s: %w: team %q score %q", op, ErrMalformed, name, score)
		}
		teams = append(teams, model.Team{Name: name, StartingScore: f})
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, decodeErr(op, err)
	}
	if err := teams.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return teams, nil
}

// WriteOdds encodes r as {"<name>": {"first", "second", "third", "podium"}} in
// roster order.
func WriteOdds(w io.Writer, r model.Result) error {
	const op = "repository.write_odds"
	bw := bufio.NewWriter(w)
	_, _ = bw.WriteString("{")
	for i, to := range r {
		name, err := json.Marshal(to.Name)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		odds, err := json.Marshal(to.Odds)
		if err != nil {
			return fmt.Errorf("%s: team %q: %w", op, to.Name, err)
		}
		if i > 0 {
			_, _ = bw.WriteString(", ")
		}
		_, _ = bw.Write(name)
		_, _ = bw.WriteString(": ")
		_, _ = bw.Write(odds)
	}
	_, _ = bw.WriteString("}\n")
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ReadDistributionFile reads a distribution file from path.
func ReadDistributionFile(path string) (distribution.Multiplicities, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("repository.read_distribution: %w", err)
	}
	defer f.Close()
	m, err := ReadDistribution(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// WriteDistributionFile replaces path with m.
func WriteDistributionFile(path string, m distribution.Multiplicities) error {
	return writeFileAtomic(path, func(w io.Writer) error { return WriteDistribution(w, m) })
}

// ReadTeamsFile reads a team input file from path.
func ReadTeamsFile(path string) (model.Teams, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("repository.read_teams: %w", err)
	}
	defer f.Close()
	teams, err := ReadTeams(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return teams, nil
}

// WriteOddsFile replaces path with r.
func WriteOddsFile(path string, r model.Result) error {
	return writeFileAtomic(path, func(w io.Writer) error { return WriteOdds(w, r) })
}

// writeFileAtomic writes to a temp file next to path and renames it into place,
// so readers never see a partial file.
func writeFileAtomic(path string, write func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("repository.write %s: %w", path, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("repository.write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("repository.write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("repository.write %s: %w", path, err)
	}
	return nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %q, got %v", ErrMalformed, want, tok)
	}
	return nil
}

// decodeErr marks syntax problems as ErrMalformed and passes I/O errors through.
func decodeErr(op string, err error) error {
	var syntax *json.SyntaxError
	var typ *json.UnmarshalTypeError
	switch {
	case errors.Is(err, ErrMalformed):
		return fmt.Errorf("%s: %w", op, err)
	case errors.As(err, &syntax), errors.As(err, &typ),
		errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%s: %w: %v", op, ErrMalformed, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
