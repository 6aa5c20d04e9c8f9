package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"ProfitSentinel/internal/model"
)

// qbReport is the ProfitAndLoss report shape returned by QuickBooks Online.
type qbReport struct {
	Header struct {
		ReportName         string `json:"ReportName"`
		StartPeriod        string `json:"StartPeriod"`
		EndPeriod          string `json:"EndPeriod"`
		SummarizeColumnsBy string `json:"SummarizeColumnsBy"`
		Currency           string `json:"Currency"`
	} `json:"Header"`
	Columns struct {
		Column []qbColumn `json:"Column"`
	} `json:"Columns"`
	Rows  qbRows   `json:"Rows"`
	Fault *qbFault `json:"Fault"`
}

type qbColumn struct {
	ColTitle string `json:"ColTitle"`
	ColType  string `json:"ColType"`
	MetaData []struct {
		Name  string `json:"Name"`
		Value string `json:"Value"`
	} `json:"MetaData"`
}

type qbRows struct {
	Row []qbRow `json:"Row"`
}

type qbRow struct {
	Type    string   `json:"type"`
	Group   string   `json:"group"`
	ColData []qbCell `json:"ColData"`
	Header  *struct {
		ColData []qbCell `json:"ColData"`
	} `json:"Header"`
	Rows    *qbRows `json:"Rows"`
	Summary *struct {
		ColData []qbCell `json:"ColData"`
	} `json:"Summary"`
}

type qbCell struct {
	Value *string `json:"value"`
	ID    string  `json:"id"`
}

type qbFault struct {
	Type  string `json:"type"`
	Error []struct {
		Message string `json:"Message"`
		Detail  string `json:"Detail"`
		Code    string `json:"code"`
	} `json:"Error"`
}

func (c qbCell) text() string {
	if c.Value == nil {
		return ""
	}
	return *c.Value
}

// groupFor maps a QuickBooks section group onto the canonical tags.
func groupFor(qbGroup string) model.GroupTag {
	switch qbGroup {
	case "Income", "OtherIncome":
		return model.GroupIncome
	case "COGS", "Expenses", "OtherExpenses":
		return model.GroupExpense
	case "NetIncome":
		return model.GroupNetIncome
	case "":
		return ""
	}
	return model.GroupOther
}

// periodColumn is a report column carrying one month of amounts.
type periodColumn struct {
	index int
	label string
}

// DecodeQuickBooks converts a ProfitAndLoss JSON payload into a report tree.
// Monthly-summarized reports use their column metadata for period labels.
// Reports without period columns are read as flat rows of (date, amount)
// pairs; they carry no section groups, so they are tagged flatGroup
// (Other when empty).
func DecodeQuickBooks(payload []byte, flatGroup model.GroupTag) (model.ReportNode, error) {
	var rep qbReport
	if err := json.Unmarshal(payload, &rep); err != nil {
		return nil, model.NewError(model.CodeUpstream, "decode report", err)
	}
	if rep.Fault != nil && len(rep.Fault.Error) > 0 {
		e := rep.Fault.Error[0]
		return nil, model.NewError(model.CodeUpstream,
			fmt.Sprintf("report fault %s: %s %s", e.Code, e.Message, e.Detail), nil)
	}

	cols := periodColumns(rep.Columns.Column)
	root := &model.Section{Title: rep.Header.ReportName}
	if len(cols) == 0 {
		if flatGroup == "" {
			flatGroup = model.GroupOther
		}
		root.Children = flatRows(rep.Rows.Row, flatGroup)
		return root, nil
	}
	root.Children = convertRows(rep.Rows.Row, cols)
	return root, nil
}

func periodColumns(columns []qbColumn) []periodColumn {
	var out []periodColumn
	for i, c := range columns {
		if c.ColType != "Money" {
			continue
		}
		var start, key string
		for _, md := range c.MetaData {
			switch md.Name {
			case "StartDate":
				start = md.Value
			case "ColKey":
				key = md.Value
			}
		}
		if strings.EqualFold(key, "total") || strings.EqualFold(c.ColTitle, "total") {
			continue
		}
		label := start
		if label == "" {
			label = c.ColTitle
		}
		if _, err := model.ParsePeriod(label); err != nil {
			continue
		}
		out = append(out, periodColumn{index: i, label: label})
	}
	return out
}

func convertRows(rows []qbRow, cols []periodColumn) []model.ReportNode {
	var nodes []model.ReportNode
	for _, r := range rows {
		if r.Type == "Section" || r.Rows != nil || r.Summary != nil {
			nodes = append(nodes, convertSection(r, cols))
			continue
		}
		nodes = append(nodes, leafFromCells(r.ColData, cols))
	}
	return nodes
}

func convertSection(r qbRow, cols []periodColumn) *model.Section {
	sec := &model.Section{Group: groupFor(r.Group)}
	if r.Header != nil && len(r.Header.ColData) > 0 {
		sec.Title = r.Header.ColData[0].text()
		// A parent account may post amounts directly on its header row.
		if hasAmounts(r.Header.ColData, cols) {
			sec.Children = append(sec.Children, leafFromCells(r.Header.ColData, cols))
		}
	}
	if r.Rows != nil {
		sec.Children = append(sec.Children, convertRows(r.Rows.Row, cols)...)
	}
	// Summaries repeat the children's total; only a childless section
	// (e.g. NetIncome) contributes its summary.
	if len(sec.Children) == 0 && r.Summary != nil {
		leaf := leafFromCells(r.Summary.ColData, cols)
		if sec.Title == "" {
			sec.Title = leaf.Account
		}
		sec.Children = append(sec.Children, leaf)
	}
	return sec
}

func hasAmounts(cells []qbCell, cols []periodColumn) bool {
	for _, c := range cols {
		if c.index < len(cells) && strings.TrimSpace(cells[c.index].text()) != "" {
			return true
		}
	}
	return false
}

func leafFromCells(cells []qbCell, cols []periodColumn) *model.Leaf {
	leaf := &model.Leaf{}
	if len(cells) > 0 {
		leaf.Account = cells[0].text()
	}
	for _, c := range cols {
		if c.index >= len(cells) {
			continue
		}
		leaf.Values = append(leaf.Values, model.PeriodValue{
			Label: c.label,
			Raw:   cells[c.index].text(),
			Null:  cells[c.index].Value == nil,
		})
	}
	return leaf
}

func flatRows(rows []qbRow, group model.GroupTag) []model.ReportNode {
	sec := &model.Section{Group: group, Title: "rows"}
	for _, r := range rows {
		if r.Summary != nil {
			continue
		}
		if len(r.ColData) < 2 {
			continue
		}
		sec.Children = append(sec.Children, &model.Leaf{
			Account: r.ColData[0].text(),
			Values: []model.PeriodValue{{
				Label: r.ColData[0].text(),
				Raw:   r.ColData[1].text(),
				Null:  r.ColData[1].Value == nil,
			}},
		})
	}
	return []model.ReportNode{sec}
}
