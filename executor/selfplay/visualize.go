// visualize.go - Console rendering for tracing self-play games.
//
// RenderBoard draws the grid with its barriers: '|' between cells that are
// walled off horizontally and '-' under cells walled off from the row below.
package selfplay

import (
	"fmt"
	"strings"

	"github.com/brensch/colosseum/game"
)

func RenderBoard(b *game.Board, players [2]game.Position) string {
	n := b.Size()
	var sb strings.Builder

	sb.WriteString("+")
	sb.WriteString(strings.Repeat("--", n-1))
	sb.WriteString("-+\n")

	for r := 0; r < n; r++ {
		sb.WriteString("|")
		for c := 0; c < n; c++ {
			p := game.Position{Row: r, Col: c}
			switch p {
			case players[0]:
				sb.WriteByte('A')
			case players[1]:
				sb.WriteByte('B')
			default:
				sb.WriteByte('.')
			}
			if c+1 < n {
				if b.HasBarrier(p, game.Right) {
					sb.WriteByte('|')
				} else {
					sb.WriteByte(' ')
				}
			}
		}
		sb.WriteString("|\n")

		if r+1 == n {
			break
		}
		sb.WriteString("|")
		for c := 0; c < n; c++ {
			if b.HasBarrier(game.Position{Row: r, Col: c}, game.Down) {
				sb.WriteByte('-')
			} else {
				sb.WriteByte(' ')
			}
			if c+1 < n {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString("|\n")
	}

	sb.WriteString("+")
	sb.WriteString(strings.Repeat("--", n-1))
	sb.WriteString("-+\n")
	return sb.String()
}

// Summary is a one-line description of a finished game.
func Summary(r GameResult) string {
	return fmt.Sprintf("%s %dx%d winner=%s turns=%d area=%d:%d fallbacks=%d",
		r.GameID, r.Size, r.Size, r.Winner(), r.Turns, r.AreaA, r.AreaB, r.Fallbacks)
}
