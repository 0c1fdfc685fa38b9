package services

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"techstock/internal/domain"
)

const (
	reportTitle     = "REPORTE DE CARGA MASIVA"
	reportSuccesses = "EXITOSOS: "
	reportFailures  = "FALLIDOS: "
	// dd/mm/yyyy, hh:mm:ss as shown by the shop's es-AR locale
	reportTimeLayout = "02/01/2006, 15:04:05"
)

// ExportReport renders a finished batch as the plain-text report.
func ExportReport(r *domain.BatchResult, at time.Time) string {
	var b strings.Builder
	b.WriteString(reportTitle + "\n")
	fmt.Fprintf(&b, "Fecha: %s\n", at.Format(reportTimeLayout))
	fmt.Fprintf(&b, "Tipo: %s\n\n", r.Variant.Label())
	fmt.Fprintf(&b, "%s%d\n", reportSuccesses, len(r.Successes))
	for _, s := range r.Successes {
		fmt.Fprintf(&b, "  ✓ %s (ID: %s)\n", s.Serial, s.GeneratedID)
	}
	fmt.Fprintf(&b, "%s%d\n", reportFailures, len(r.Failures))
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "  ✗ %s: %s\n", oneLine(f.Serial), oneLine(f.ErrorMessage))
	}
	return b.String()
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// oneLine keeps each report entry on a single line.
func oneLine(s string) string { return lineBreaks.Replace(s) }

// ReportFilename follows carga-masiva-<ISO date>.txt.
func ReportFilename(at time.Time) string {
	return "carga-masiva-" + at.Format("2006-01-02") + ".txt"
}

// ParseReportCounts reads back the EXITOSOS/FALLIDOS headers of a report.
func ParseReportCounts(report string) (successes, failures int, err error) {
	var seenOK, seenFail bool
	sc := bufio.NewScanner(strings.NewReader(report))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, reportSuccesses):
			successes, err = strconv.Atoi(strings.TrimPrefix(line, reportSuccesses))
			seenOK = true
		case strings.HasPrefix(line, reportFailures):
			failures, err = strconv.Atoi(strings.TrimPrefix(line, reportFailures))
			seenFail = true
		}
		if err != nil {
			return 0, 0, fmt.Errorf("parse report counts: %w", err)
		}
	}
	if !seenOK || !seenFail {
		return 0, 0, errors.New("report is missing count headers")
	}
	return successes, failures, nil
}
