package syntax

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTreeString(t *testing.T) {
	src := []byte("func main() {}")
	syn, err := New(src, newGoConfig(t), nil)
	require.NoError(t, err)
	defer syn.Close()

	want := `(source_file
  (function_declaration
    name: (identifier)
    parameters: (parameter_list)
    body: (block)))`
	require.Equal(t, want, TreeString(syn.Tree().RootNode()))

	// A leaf prints inline.
	leaf := syn.DescendantForByteRange(5, 9)
	require.Equal(t, "(identifier)", TreeString(leaf))
}
