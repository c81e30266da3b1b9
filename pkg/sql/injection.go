package sql

import (
	"fmt"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
)

// InjectionFinding describes a string literal that looks like an injection
// payload.
type InjectionFinding struct {
	Literal     string
	Fingerprint string
}

// CheckLiteral runs libinjection over one literal value. Returns nil when the
// value is clean.
func CheckLiteral(value string) *InjectionFinding {
	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}
	return &InjectionFinding{Literal: value, Fingerprint: string(fingerprint)}
}

// FindInjections returns a finding for every suspicious string literal in
// the query.
func FindInjections(query string) ([]*InjectionFinding, error) {
	tokens, err := lex(query)
	if err != nil {
		return nil, err
	}
	var findings []*InjectionFinding
	for _, t := range tokens {
		if t.kind != tokenLiteral {
			continue
		}
		if f := CheckLiteral(t.text); f != nil {
			findings = append(findings, f)
		}
	}
	return findings, nil
}

// CheckLiterals fails on the first suspicious string literal.
func CheckLiterals(query string) error {
	findings, err := FindInjections(query)
	if err != nil {
		return err
	}
	if len(findings) > 0 {
		return fmt.Errorf("%w: literal matches injection fingerprint %q",
			apperrors.ErrUnsafeQuery, findings[0].Fingerprint)
	}
	return nil
}
