package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tabletoplab/gamescout/internal/storage"
	"github.com/tabletoplab/gamescout/pkg/types"
)

// Interpreter turns a free-text message plus conversational context
// into a structured QuerySpec. It is pure apart from the catalog name
// lookup used for anchor resolution.
type Interpreter struct {
	catalog storage.GameCatalog
	rules   *RuleTable
	cfg     Config
}

// NewInterpreter creates an interpreter using the given rule table.
// Pass DefaultRuleTable() unless a deployment overrides the rules.
func NewInterpreter(catalog storage.GameCatalog, rules *RuleTable, cfg Config) *Interpreter {
	return &Interpreter{catalog: catalog, rules: rules, cfg: cfg}
}

// Numeric filter patterns. Playtime accepts minutes and hours; weight
// accepts the 1-5 complexity scale.
var (
	playersRe = regexp.MustCompile(`(?i)(?:for|with|supports?)\s+(\d+)\s+(?:players?|people)|(\d+)\s+players?\b`)

	playtimeMaxRe = regexp.MustCompile(`(?i)(?:under|less than|at most|shorter than|within|no more than)\s+(\d+(?:\.\d+)?)\s*(minutes?|mins?|hours?|hrs?)`)
	playtimeMinRe = regexp.MustCompile(`(?i)(?:over|more than|at least|longer than)\s+(\d+(?:\.\d+)?)\s*(minutes?|mins?|hours?|hrs?)`)

	weightMaxRe = regexp.MustCompile(`(?i)(?:lighter than|weight (?:under|below|at most)|complexity (?:under|below|at most))\s+(\d+(?:\.\d+)?)`)
	weightMinRe = regexp.MustCompile(`(?i)(?:heavier than|weight (?:over|above|at least)|complexity (?:over|above|at least))\s+(\d+(?:\.\d+)?)`)
)

// Interpret resolves the message and context into a QuerySpec.
//
// Anchor resolution priority: explicit selection from context, then a
// fuzzy name match against the catalog, then the last discussed game.
// When the intent requires an anchor and none resolves, it returns
// ErrAmbiguousAnchor.
//
// When no rule classifies the message, the documented defaults apply:
// intent "similar", scope "global".
func (in *Interpreter) Interpret(ctx context.Context, message string, convCtx types.Context) (*types.QuerySpec, error) {
	m := in.rules.match(message, &in.cfg)

	spec := &types.QuerySpec{
		Scope:  types.ScopeGlobal,
		Intent: types.IntentSimilar,
	}
	if m.intent != "" {
		spec.Intent = m.intent
	}
	if m.scope != "" {
		spec.Scope = m.scope
	}
	if convCtx.UseCollection {
		spec.Scope = types.ScopeCollection
	}
	if len(m.constraints) > 0 {
		spec.Constraints = m.constraints
	}

	in.extractNumericFilters(message, spec)

	anchorID, err := in.resolveAnchor(ctx, message, convCtx)
	if err != nil {
		return nil, err
	}
	spec.AnchorGameID = anchorID

	if spec.AnchorGameID == 0 && spec.Intent.RequiresAnchor() {
		return nil, fmt.Errorf("%w: intent %q needs a reference game", ErrAmbiguousAnchor, spec.Intent)
	}

	return spec, nil
}

// resolveAnchor applies the anchor priority chain. A zero return with a
// nil error means no anchor resolved; the caller decides whether that
// is fatal for the classified intent.
func (in *Interpreter) resolveAnchor(ctx context.Context, message string, convCtx types.Context) (int64, error) {
	if convCtx.SelectedGameID != 0 {
		return convCtx.SelectedGameID, nil
	}

	names, err := in.catalog.NameIndex(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: name index: %v", ErrProviderUnavailable, err)
	}
	if match, ok := matchGameName(message, names, in.cfg.NameMatchMinScore); ok {
		return match.gameID, nil
	}

	if convCtx.LastGameID != 0 {
		return convCtx.LastGameID, nil
	}

	return 0, nil
}

// extractNumericFilters pulls player-count, playtime, and weight
// bounds out of explicit phrasing in the message.
func (in *Interpreter) extractNumericFilters(message string, spec *types.QuerySpec) {
	if m := playersRe.FindStringSubmatch(message); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			spec.PlayerCount = &n
		}
	}

	if m := playtimeMaxRe.FindStringSubmatch(message); m != nil {
		if v, ok := parseMinutes(m[1], m[2]); ok {
			spec.Playtime.Max = &v
		}
	}
	if m := playtimeMinRe.FindStringSubmatch(message); m != nil {
		if v, ok := parseMinutes(m[1], m[2]); ok {
			spec.Playtime.Min = &v
		}
	}

	if m := weightMaxRe.FindStringSubmatch(message); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			spec.Weight.Max = &v
		}
	}
	if m := weightMinRe.FindStringSubmatch(message); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			spec.Weight.Min = &v
		}
	}
}

// parseMinutes converts a value with a minutes/hours unit to minutes.
func parseMinutes(value, unit string) (float64, bool) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	if strings.HasPrefix(strings.ToLower(unit), "h") {
		v *= 60
	}
	return v, true
}
