package domain

// CartLine is a client-supplied request to buy Quantity licenses of one game.
// It is never persisted; it exists only for the duration of a single
// calculate or checkout call.
type CartLine struct {
	GameID   string
	Quantity int
}
