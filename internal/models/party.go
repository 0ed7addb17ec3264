package models

import (
	"fmt"
	"strings"
)

// Party 代表訴訟中的一方
type Party string

const (
	Plaintiff Party = "plaintiff"
	Defendant Party = "defendant"
)

// Parties 依固定順序列出雙方
var Parties = []Party{Plaintiff, Defendant}

// ParseParty 將字串轉為 Party，不分大小寫
func ParseParty(s string) (Party, error) {
	switch Party(strings.ToLower(strings.TrimSpace(s))) {
	case Plaintiff:
		return Plaintiff, nil
	case Defendant:
		return Defendant, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownParty, s)
}

// Opponent 回傳對方
func (p Party) Opponent() Party {
	if p == Plaintiff {
		return Defendant
	}
	return Plaintiff
}

// CaseType 決定雙方的稱謂
type CaseType string

const (
	CaseCivil          CaseType = "civil"
	CaseCriminal       CaseType = "criminal"
	CaseAdministrative CaseType = "administrative"
)

var partyLabels = map[CaseType]map[Party]string{
	CaseCivil:          {Plaintiff: "原告", Defendant: "被告"},
	CaseCriminal:       {Plaintiff: "檢察官", Defendant: "被告"},
	CaseAdministrative: {Plaintiff: "原告", Defendant: "被告機關"},
}

// ParseCaseType 空字串視為民事案件
func ParseCaseType(s string) (CaseType, error) {
	ct := CaseType(strings.ToLower(strings.TrimSpace(s)))
	if ct == "" {
		return CaseCivil, nil
	}
	if _, ok := partyLabels[ct]; !ok {
		return "", fmt.Errorf("不支援的案件類型: %q", s)
	}
	return ct, nil
}

// Label 回傳該方在此案件類型下的稱謂
func (c CaseType) Label(p Party) string {
	labels, ok := partyLabels[c]
	if !ok {
		labels = partyLabels[CaseCivil]
	}
	return labels[p]
}
