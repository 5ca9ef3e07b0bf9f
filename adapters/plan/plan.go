// Package plan reads batch plans: a seed key, a default confidence and an
// ordered list of runs that share one random stream.
package plan

import (
	"fmt"
	"os"
	"strconv"

	"github.com/tidwall/gjson"

	"gopi/app"
	"gopi/internal/config"
	"gopi/internal/errors"
)

// Plan is a parsed batch plan
type Plan struct {
	SeedKey    []uint32
	Confidence float64
	Runs       []app.ExperimentRequest
}

// Load reads and parses a plan file
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read plan %s", path)
	}
	return Parse(data)
}

// Parse parses a plan document:
//
//	{"seed_key": ["0x123", 564], "confidence": 0.95,
//	 "runs": [{"trials": 10, "points": 1000000, "critical_value": 2.228}]}
//
// seed_key may also be a single comma-separated string. A run without
// critical_value or confidence inherits the plan confidence.
func Parse(data []byte) (*Plan, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.InvalidInput("plan is not valid JSON")
	}
	doc := gjson.ParseBytes(data)

	key, err := parseKey(doc.Get("seed_key"))
	if err != nil {
		return nil, err
	}

	p := &Plan{SeedKey: key}
	if c := doc.Get("confidence"); c.Exists() {
		if c.Type != gjson.Number {
			return nil, errors.InvalidInput("confidence must be a number")
		}
		p.Confidence = c.Float()
	}

	runs := doc.Get("runs")
	if !runs.IsArray() || len(runs.Array()) == 0 {
		return nil, errors.InvalidInput("runs must be a non-empty array")
	}

	for i, r := range runs.Array() {
		req, err := parseRun(r, p.Confidence)
		if err != nil {
			return nil, errors.Wrapf(err, "runs[%d]", i)
		}
		p.Runs = append(p.Runs, req)
	}
	return p, nil
}

func parseKey(v gjson.Result) ([]uint32, error) {
	if !v.Exists() {
		return nil, nil
	}
	if v.Type == gjson.String {
		return config.ParseSeedKey(v.String())
	}
	if !v.IsArray() {
		return nil, errors.InvalidInput("seed_key must be an array or a string")
	}

	var key []uint32
	for _, w := range v.Array() {
		switch w.Type {
		case gjson.Number:
			n, err := strconv.ParseUint(w.Raw, 10, 32)
			if err != nil {
				return nil, errors.InvalidInput(fmt.Sprintf("seed key word %s is not a 32-bit unsigned integer", w.Raw))
			}
			key = append(key, uint32(n))
		case gjson.String:
			words, err := config.ParseSeedKey(w.String())
			if err != nil {
				return nil, err
			}
			key = append(key, words...)
		default:
			return nil, errors.InvalidInput(fmt.Sprintf("seed key word %s is not a number", w.Raw))
		}
	}
	if len(key) == 0 {
		return nil, errors.InvalidInput("seed_key must not be empty")
	}
	return key, nil
}

func parseRun(r gjson.Result, confidence float64) (app.ExperimentRequest, error) {
	var req app.ExperimentRequest
	if !r.IsObject() {
		return req, errors.InvalidInput("run must be an object")
	}

	var err error
	if req.Trials, err = intField(r, "trials"); err != nil {
		return req, err
	}
	if req.PointsPerTrial, err = intField(r, "points"); err != nil {
		return req, err
	}

	if cv := r.Get("critical_value"); cv.Exists() {
		if cv.Type != gjson.Number {
			return req, errors.InvalidInput("critical_value must be a number")
		}
		v := cv.Float()
		req.CriticalValue = &v
	} else if c := r.Get("confidence"); c.Exists() {
		if c.Type != gjson.Number {
			return req, errors.InvalidInput("confidence must be a number")
		}
		req.Confidence = c.Float()
	} else {
		req.Confidence = confidence
	}
	return req, nil
}

// intField reads an optional whole-number field; absent fields stay zero so
// the service applies its defaults.
func intField(r gjson.Result, name string) (int, error) {
	v := r.Get(name)
	if !v.Exists() {
		return 0, nil
	}
	if v.Type != gjson.Number || v.Float() != float64(v.Int()) {
		return 0, errors.InvalidInput(fmt.Sprintf("%s must be a whole number", name))
	}
	return int(v.Int()), nil
}
