package game

import (
	"fmt"
	"io"

	"github.com/notnil/chess"
)

// Render writes the current board with a one-line status underneath.
func Render(w io.Writer, g *chess.Game, status string) {
	fmt.Fprintln(w)
	fmt.Fprint(w, g.Position().Board().Draw())
	if status != "" {
		fmt.Fprintf(w, "%s\n", status)
	}
}
