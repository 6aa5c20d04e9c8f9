package model

// GroupTag classifies a report section.
type GroupTag string

const (
	GroupIncome    GroupTag = "Income"
	GroupExpense   GroupTag = "Expense"
	GroupNetIncome GroupTag = "NetIncome"
	GroupOther     GroupTag = "Other"
)

// ParseGroupTag maps a user-facing metric name to a GroupTag.
func ParseGroupTag(s string) (GroupTag, bool) {
	switch s {
	case "income", "Income":
		return GroupIncome, true
	case "expense", "expenses", "Expense", "Expenses":
		return GroupExpense, true
	case "net", "net_income", "netincome", "NetIncome":
		return GroupNetIncome, true
	case "other", "Other":
		return GroupOther, true
	}
	return "", false
}

// PeriodValue is one reported amount, still in the provider's textual form.
type PeriodValue struct {
	Label string
	Raw   string
	Null  bool
}

// ReportNode is either a *Leaf or a *Section. The set is closed.
type ReportNode interface {
	reportNode()
}

// Leaf is a single account row with one value per reporting period.
type Leaf struct {
	Account string
	Values  []PeriodValue
}

// Section groups child nodes under a tag. Sections nest.
type Section struct {
	Group    GroupTag
	Title    string
	Children []ReportNode
}

func (*Leaf) reportNode()    {}
func (*Section) reportNode() {}

// Visitor receives the nodes of a report tree in depth-first order.
// group is the nearest enclosing section's tag.
type Visitor interface {
	VisitLeaf(leaf *Leaf, group GroupTag)
}

// Walk traverses the tree depth-first, propagating group tags downward.
// A leaf outside any section is reported under GroupOther.
func Walk(node ReportNode, v Visitor) {
	walk(node, GroupOther, v)
}

func walk(node ReportNode, group GroupTag, v Visitor) {
	switch n := node.(type) {
	case *Section:
		g := n.Group
		if g == "" {
			g = group
		}
		for _, child := range n.Children {
			walk(child, g, v)
		}
	case *Leaf:
		v.VisitLeaf(n, group)
	}
}
