package report

import (
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"ProfitSentinel/internal/model"
)

// Key addresses one parsed amount.
type Key struct {
	Group  model.GroupTag
	Period model.Period
}

// Parsed maps (group, period) to the summed amount.
type Parsed map[Key]decimal.Decimal

// Periods returns every distinct period present, in no particular order.
func (p Parsed) Periods() map[model.Period]struct{} {
	out := make(map[model.Period]struct{}, len(p))
	for k := range p {
		out[k.Period] = struct{}{}
	}
	return out
}

// Has reports whether any value exists for the group.
func (p Parsed) Has(group model.GroupTag) bool {
	for k := range p {
		if k.Group == group {
			return true
		}
	}
	return false
}

// Result is the outcome of a parse.
type Result struct {
	Values   Parsed
	Leaves   int // leaves that contributed at least one value
	Warnings int // skipped leaves or cells
}

// Parser walks report trees. The zero value discards warnings.
type Parser struct {
	log *logrus.Logger
}

// NewParser creates a Parser that logs skipped rows to log.
func NewParser(log *logrus.Logger) *Parser {
	return &Parser{log: log}
}

// Parse extracts one amount per leaf per period, keyed by the nearest
// enclosing group. Malformed cells are skipped with a warning.
func (p *Parser) Parse(tree model.ReportNode) (*Result, error) {
	v := &parseVisitor{parser: p, res: &Result{Values: Parsed{}}}
	if tree != nil {
		model.Walk(tree, v)
	}
	if v.res.Leaves == 0 {
		return nil, model.NewError(model.CodeEmptyReport, "report contains no usable rows", nil)
	}
	return v.res, nil
}

// Parse is a convenience wrapper around a Parser without logging.
func Parse(tree model.ReportNode) (Parsed, error) {
	res, err := (&Parser{}).Parse(tree)
	if err != nil {
		return nil, err
	}
	return res.Values, nil
}

type parseVisitor struct {
	parser *Parser
	res    *Result
}

func (v *parseVisitor) VisitLeaf(leaf *model.Leaf, group model.GroupTag) {
	if len(leaf.Values) == 0 {
		v.warn(leaf, group, "", "row has no amounts")
		return
	}
	used := false
	for _, pv := range leaf.Values {
		period, err := model.ParsePeriod(pv.Label)
		if err != nil {
			v.warn(leaf, group, pv.Label, "unlabeled period")
			continue
		}
		amount, err := ParseAmount(pv.Raw, pv.Null)
		if err != nil {
			v.warn(leaf, group, pv.Label, err.Error())
			continue
		}
		k := Key{Group: group, Period: period}
		v.res.Values[k] = v.res.Values[k].Add(amount)
		used = true
	}
	if used {
		v.res.Leaves++
	}
}

func (v *parseVisitor) warn(leaf *model.Leaf, group model.GroupTag, label, reason string) {
	v.res.Warnings++
	if v.parser.log == nil {
		return
	}
	v.parser.log.WithFields(logrus.Fields{
		"account": leaf.Account,
		"group":   group,
		"period":  label,
	}).Warnf("skipping report cell: %s", reason)
}
