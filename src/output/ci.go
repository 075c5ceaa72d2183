package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sofmeright/slipway/src/scan"
)

// CI environment detection.

func IsCI() bool {
	return os.Getenv("CI") == "true"
}

func IsGitLabCI() bool {
	return os.Getenv("GITLAB_CI") == "true"
}

// GitLab collapsible section helpers.

func SectionStart(w io.Writer, id, name string) {
	if !IsGitLabCI() {
		return
	}
	ts := time.Now().Unix()
	fmt.Fprintf(w, "\033[0Ksection_start:%d:%s\r\033[0K%s\n", ts, id, name)
}

func SectionEnd(w io.Writer, id string) {
	if !IsGitLabCI() {
		return
	}
	ts := time.Now().Unix()
	fmt.Fprintf(w, "\033[0Ksection_end:%d:%s\r\033[0K\n", ts, id)
}

// SectionStartCollapsed starts a section that is collapsed by default.
func SectionStartCollapsed(w io.Writer, id, name string) {
	if !IsGitLabCI() {
		return
	}
	ts := time.Now().Unix()
	fmt.Fprintf(w, "\033[0Ksection_start:%d:%s[collapsed=true]\r\033[0K%s\n", ts, id, name)
}

// JUnit XML types for GitLab test reporting.

type JUnitTestSuites struct {
	XMLName  xml.Name         `xml:"testsuites"`
	Name     string           `xml:"name,attr"`
	Tests    int              `xml:"tests,attr"`
	Failures int              `xml:"failures,attr"`
	Time     string           `xml:"time,attr"`
	Suites   []JUnitTestSuite `xml:"testsuite"`
}

type JUnitTestSuite struct {
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Time     string          `xml:"time,attr"`
	Cases    []JUnitTestCase `xml:"testcase"`
}

type JUnitTestCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
}

type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// WriteScanJUnit writes secret scan findings as JUnit XML for GitLab test
// reporting. Each scanned file becomes a test case; a file with findings
// becomes a failure.
func WriteScanJUnit(dir string, findings []scan.Finding, files []string, elapsed time.Duration) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating report dir: %w", err)
	}

	byFile := make(map[string][]scan.Finding)
	for _, f := range findings {
		byFile[f.File] = append(byFile[f.File], f)
	}

	suite := JUnitTestSuite{
		Name: "slipway/scan",
		Time: fmt.Sprintf("%.3f", elapsed.Seconds()),
	}

	for _, path := range files {
		tc := JUnitTestCase{
			Name:      path,
			Classname: "slipway.scan",
			Time:      "0.000",
		}

		if ff := byFile[path]; len(ff) > 0 {
			var lines []string
			for _, finding := range ff {
				lines = append(lines, fmt.Sprintf("  %d [%s] %s", finding.Line, finding.RuleID, finding.Message))
			}
			tc.Failure = &JUnitFailure{
				Message: fmt.Sprintf("%d finding(s) in %s", len(ff), path),
				Type:    "secret",
				Body:    strings.Join(lines, "\n"),
			}
			suite.Failures++
		}

		suite.Cases = append(suite.Cases, tc)
		suite.Tests++
	}

	root := JUnitTestSuites{
		Name:     "slipway-scan",
		Tests:    suite.Tests,
		Failures: suite.Failures,
		Time:     fmt.Sprintf("%.3f", elapsed.Seconds()),
		Suites:   []JUnitTestSuite{suite},
	}

	path := filepath.Join(dir, "scan.xml")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	f.WriteString(xml.Header)
	enc := xml.NewEncoder(f)
	enc.Indent("", "  ")
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("encoding junit xml: %w", err)
	}
	f.WriteString("\n")

	return nil
}

