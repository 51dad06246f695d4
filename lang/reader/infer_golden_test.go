package reader_test

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/mna/lacewing/internal/filetest"
	"github.com/mna/lacewing/lang/reader"
)

var testUpdateInferTests = flag.Bool("test.update-infer-tests", false, "If set, replace expected infer-parens test results with actual results.")

// TestInferParensGolden runs InferParens over every fixture under
// testdata/in and compares its output against the matching golden file
// under testdata/out.
func TestInferParensGolden(t *testing.T) {
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, fi := range filetest.SourceFiles(t, srcDir, ".lace") {
		t.Run(fi.Name(), func(t *testing.T) {
				src, err := os.ReadFile(filepath.Join(srcDir, fi.Name()))
				if err != nil {
					t.Fatal(err)
				}
				out := reader.InferParens(src, 8)
				filetest.DiffOutput(t, fi, string(out), resultDir, testUpdateInferTests)
		})
	}
}
