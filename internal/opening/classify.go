package opening

import (
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
)

var (
	ecoOnce sync.Once
	ecoBook *opening.BookECO
)

// ECO is the deepest named line in the ECO book that the game follows.
type ECO struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

// Classify looks the game's moves up in the embedded ECO book. It is a hint
// for arbitrary lines and never changes the table resolution.
func Classify(game *nchess.Game) (ECO, bool) {
	if game == nil || len(game.Moves()) == 0 {
		return ECO{}, false
	}
	ecoOnce.Do(func() {
		ecoBook = opening.NewBookECO()
	})
	if ecoBook == nil {
		return ECO{}, false
	}
	eco := ecoBook.Find(game.Moves())
	if eco == nil {
		return ECO{}, false
	}
	return ECO{Code: eco.Code(), Title: eco.Title()}, true
}
