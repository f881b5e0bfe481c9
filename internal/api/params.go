package api

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/paveg/filmdash/internal/filter"
)

var validate = validator.New()

// filterQuery holds the raw filter parameters of a request.
type filterQuery struct {
	YearMin string   `validate:"omitempty,number"`
	YearMax string   `validate:"omitempty,number"`
	MetaMin string   `validate:"omitempty,numeric"`
	MetaMax string   `validate:"omitempty,numeric"`
	Genres  []string `validate:"dive,required,max=256"`
	Cast    []string `validate:"dive,required,max=256"`
}

// filterRanges holds the resolved bounds after defaults are applied.
type filterRanges struct {
	YearMin int64 `validate:"ltefield=YearMax"`
	YearMax int64
	MetaMin float64 `validate:"ltefield=MetaMax"`
	MetaMax float64
}

// FieldError describes one rejected query parameter.
type FieldError struct {
	Param string `json:"param"`
	Rule  string `json:"rule"`
	Value string `json:"value,omitempty"`
}

var paramNames = map[string]string{
	"YearMin": "year_min",
	"YearMax": "year_max",
	"MetaMin": "meta_min",
	"MetaMax": "meta_max",
	"Genres":  "genre",
	"Cast":    "cast",
}

// ParseFilter builds a filter state from query parameters. Unspecified
// parameters take their value from defaults. The returned FieldErrors are
// non-nil when a parameter is malformed or a range is inverted.
func ParseFilter(query url.Values, defaults filter.State) (filter.State, []FieldError) {
	raw := filterQuery{
		YearMin: query.Get("year_min"),
		YearMax: query.Get("year_max"),
		MetaMin: query.Get("meta_min"),
		MetaMax: query.Get("meta_max"),
		Genres:  query["genre"],
		Cast:    query["cast"],
	}
	if err := validate.Struct(raw); err != nil {
		return filter.State{}, fieldErrors(err)
	}

	ranges := filterRanges{
		YearMin: defaults.YearRange.Min,
		YearMax: defaults.YearRange.Max,
		MetaMin: defaults.MetadataRange.Min,
		MetaMax: defaults.MetadataRange.Max,
	}
	var problems []FieldError
	parseInt := func(name, value string, dst *int64) {
		if value == "" {
			return
		}
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			problems = append(problems, FieldError{Param: name, Rule: "int64", Value: value})
			return
		}
		*dst = v
	}
	parseFloat := func(name, value string, dst *float64) {
		if value == "" {
			return
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			problems = append(problems, FieldError{Param: name, Rule: "float64", Value: value})
			return
		}
		*dst = v
	}
	parseInt("year_min", raw.YearMin, &ranges.YearMin)
	parseInt("year_max", raw.YearMax, &ranges.YearMax)
	parseFloat("meta_min", raw.MetaMin, &ranges.MetaMin)
	parseFloat("meta_max", raw.MetaMax, &ranges.MetaMax)
	if problems != nil {
		return filter.State{}, problems
	}

	if err := validate.Struct(ranges); err != nil {
		return filter.State{}, fieldErrors(err)
	}

	state := filter.State{
		YearRange:     filter.IntRange{Min: ranges.YearMin, Max: ranges.YearMax},
		MetadataRange: filter.Range{Min: ranges.MetaMin, Max: ranges.MetaMax},
		Genres:        []string{},
		CastMembers:   []string{},
	}
	state.Genres = append(state.Genres, raw.Genres...)
	state.CastMembers = append(state.CastMembers, raw.Cast...)
	return state, nil
}

func fieldErrors(err error) []FieldError {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Param: "query", Rule: err.Error()}}
	}
	out := make([]FieldError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		name, ok := paramNames[fe.StructField()]
		if !ok {
			name = fe.Field()
		}
		out = append(out, FieldError{
			Param: name,
			Rule:  fe.Tag(),
			Value: fmt.Sprint(fe.Value()),
		})
	}
	return out
}
