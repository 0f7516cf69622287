package normalize

import (
	"encoding/xml"
	"fmt"

	"github.com/pipeops/healthoor/pkg/classify"
	"github.com/pipeops/healthoor/pkg/model"
)

// junitSuites is the <testsuites> document root.
type junitSuites struct {
	XMLName xml.Name     `xml:"testsuites"`
	Suites  []junitSuite `xml:"testsuite"`
}

type junitSuite struct {
	Name  string      `xml:"name,attr"`
	Cases []junitCase `xml:"testcase"`
}

type junitCase struct {
	ClassName string        `xml:"classname,attr"`
	Name      string        `xml:"name,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Text    string `xml:",chardata"`
}

// RunFromJUnit converts a JUnit XML report into a canonical run.
// classname maps to spec and the case name to scenario; a testcase
// without a <failure> element counts as passed.
func RunFromJUnit(data []byte) (*model.Run, error) {
	suites, err := parseJUnit(data)
	if err != nil {
		return nil, err
	}

	run := &model.Run{}

	var totalSecs float64

	for _, suite := range suites.Suites {
		for _, tc := range suite.Cases {
			spec := tc.ClassName
			if spec == "" {
				spec = suite.Name
			}

			t := model.Test{
				Spec:     spec,
				Scenario: tc.Name,
				Status:   model.StatusPass,
				Duration: FormatDuration(tc.Time),
			}

			if tc.Failure != nil {
				t.Status = model.StatusFail
				t.Error = firstNonEmpty(
					tc.Failure.Message, tc.Failure.Text,
				)
				t.Category = classify.Categorize(t.Error)
			}

			totalSecs += tc.Time

			run.Tests = append(run.Tests, t)

			run.Total++
			if t.Status == model.StatusPass {
				run.Passed++
			} else {
				run.Failed++
			}
		}
	}

	if run.Total > 0 {
		run.PassRate = float64(run.Passed) / float64(run.Total) * 100
	}

	run.Duration = FormatDuration(totalSecs)
	run.Categories = deriveCategories(run.Tests)

	return run, nil
}

// parseJUnit accepts both a <testsuites> document and a bare
// <testsuite> root, which older report generators emit.
func parseJUnit(data []byte) (*junitSuites, error) {
	var suites junitSuites
	if err := xml.Unmarshal(data, &suites); err == nil {
		return &suites, nil
	}

	var single junitSuite
	if err := xml.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("parsing junit xml: %w", err)
	}

	return &junitSuites{Suites: []junitSuite{single}}, nil
}
