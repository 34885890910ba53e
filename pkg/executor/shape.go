package executor

import (
	"strings"

	"github.com/runbox-dev/runbox/pkg/sandbox"
)

// Plot is one rendered image artifact. Data is base64-encoded.
type Plot struct {
	Format string
	Data   string
}

// shaped is the flat view of a raw execution result.
type shaped struct {
	Stdout string
	Stderr string
	Error  string // empty on success
	Plots  []Plot
}

// shapeExecution flattens the sandbox's heterogeneous result stream.
// Image results become plots in their original order; text results are
// appended to stdout after explicit print output, reproducing the
// notebook-style echo of a bare trailing expression.
func shapeExecution(ex *sandbox.Execution) shaped {
	out := shaped{
		Stdout: strings.Join(ex.Logs.Stdout, "\n"),
		Stderr: strings.Join(ex.Logs.Stderr, "\n"),
	}

	if ex.Error != nil {
		out.Error = ex.Error.Error()
	}

	var texts []string
	for _, result := range ex.Results {
		switch result.Kind {
		case sandbox.RichImage:
			out.Plots = append(out.Plots, Plot{Format: "png", Data: result.PNG})
		case sandbox.RichText:
			if result.Text != "" {
				texts = append(texts, result.Text)
			}
		case sandbox.RichEmpty:
			// Contributes nothing.
		}
	}

	if len(texts) > 0 {
		echo := strings.Join(texts, "\n")
		if out.Stdout != "" {
			out.Stdout = out.Stdout + "\n" + echo
		} else {
			out.Stdout = echo
		}
	}

	return out
}
