package loader_test

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeops/healthoor/pkg/loader"
	"github.com/pipeops/healthoor/pkg/storage"
)

// fakeReader serves manifest and run files from memory.
type fakeReader struct {
	manifest []byte
	files    map[string][]byte
	failures map[string]error
}

var _ storage.Reader = (*fakeReader)(nil)

func (f *fakeReader) GetManifest(context.Context) ([]byte, error) {
	return f.manifest, nil
}

func (f *fakeReader) GetRunFile(_ context.Context, name string) ([]byte, error) {
	if err, ok := f.failures[name]; ok {
		return nil, err
	}

	return f.files[name], nil
}

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

func TestLoad(t *testing.T) {
	reader := &fakeReader{
		manifest: []byte(`{"runs":[
			{"date":"2026-03-02","file":"run-2.json","label":"nightly"},
			{"date":"2026-03-01","file":"run-1.json"}
		]}`),
		files: map[string][]byte{
			"run-1.json": []byte(`{"date":"2026-03-01","total":2,"passed":2,"failed":0}`),
			"run-2.json": []byte(`{"total":3,"passed":1,"failed":2}`),
		},
	}

	runs, err := loader.New(testLogger(), reader, 10, 2).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Date-ascending output.
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, "run-2", runs[1].ID)

	// Manifest fields fill payload gaps: run-2 had no date or label.
	assert.Equal(t, "nightly", runs[1].Label)
	require.True(t, runs[1].HasDate())
	assert.Equal(t, "2026-03-02", runs[1].Timestamp.Format("2006-01-02"))
}

func TestLoad_MissingManifest(t *testing.T) {
	runs, err := loader.New(testLogger(), &fakeReader{}, 10, 2).
		Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestLoad_SkipsBrokenRuns(t *testing.T) {
	reader := &fakeReader{
		manifest: []byte(`{"runs":[
			{"date":"2026-03-03","file":"missing.json"},
			{"date":"2026-03-02","file":"broken.json"},
			{"date":"2026-03-01","file":"ok.json"}
		]}`),
		files: map[string][]byte{
			"ok.json":     []byte(`{"date":"2026-03-01","total":1,"passed":1}`),
			"broken.json": []byte(`{not json`),
		},
		failures: map[string]error{
			"missing.json": nil,
		},
	}

	runs, err := loader.New(testLogger(), reader, 10, 1).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "ok", runs[0].ID)
}

func TestLoad_FetchErrorSkipsRun(t *testing.T) {
	reader := &fakeReader{
		manifest: []byte(`{"runs":[
			{"date":"2026-03-02","file":"flaky.json"},
			{"date":"2026-03-01","file":"ok.json"}
		]}`),
		files: map[string][]byte{
			"ok.json": []byte(`{"date":"2026-03-01","total":1,"passed":1}`),
		},
		failures: map[string]error{
			"flaky.json": fmt.Errorf("connection reset"),
		},
	}

	runs, err := loader.New(testLogger(), reader, 10, 2).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
}

func TestLoad_WindowBoundsHistory(t *testing.T) {
	manifest := `{"runs":[
		{"date":"2026-03-05","file":"e.json"},
		{"date":"2026-03-04","file":"d.json"},
		{"date":"2026-03-03","file":"c.json"},
		{"date":"2026-03-02","file":"b.json"},
		{"date":"2026-03-01","file":"a.json"}
	]}`

	files := map[string][]byte{}
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		files[name+".json"] = []byte(`{"total":1,"passed":1}`)
	}

	reader := &fakeReader{manifest: []byte(manifest), files: files}

	runs, err := loader.New(testLogger(), reader, 2, 2).Load(context.Background())
	require.NoError(t, err)

	// Only the two newest manifest entries are loaded.
	require.Len(t, runs, 2)
	assert.Equal(t, "d", runs[0].ID)
	assert.Equal(t, "e", runs[1].ID)
}

func TestLoad_JUnitByExtension(t *testing.T) {
	reader := &fakeReader{
		manifest: []byte(`{"runs":[{"date":"2026-03-01","file":"report.xml"}]}`),
		files: map[string][]byte{
			"report.xml": []byte(`<testsuites>
				<testsuite name="suite">
					<testcase classname="Pipelines" name="basic"/>
					<testcase classname="Pipelines" name="webhook">
						<failure message="secret missing"/>
					</testcase>
				</testsuite>
			</testsuites>`),
		},
	}

	runs, err := loader.New(testLogger(), reader, 10, 1).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)

	assert.Equal(t, "report", runs[0].ID)
	assert.Equal(t, 2, runs[0].Total)
	assert.Equal(t, 1, runs[0].Failed)
}
