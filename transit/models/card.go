package models

type Card struct {
	ID     int64  `json:"id"`
	Wallet int64  `json:"wallet"`
	// Contract is the lowercase home region; empty when the card has none.
	Contract string `json:"contract"`
}

// HasContract reports whether rides to some region are covered by the card.
func (c Card) HasContract() bool {
	return c.Contract != ""
}

// CreateCard holds the initial state of a new card.
type CreateCard struct {
	Wallet   int64
	Contract string
}

// CardUpdate is a partial update of a card record. Nil fields are left
// untouched.
type CardUpdate struct {
	Wallet   *int64
	Contract *string
}

func (u CardUpdate) IsEmpty() bool {
	return u.Wallet == nil && u.Contract == nil
}

// Apply returns a copy of card with the update applied.
func (u CardUpdate) Apply(card Card) Card {
	if u.Wallet != nil {
		card.Wallet = *u.Wallet
	}
	if u.Contract != nil {
		card.Contract = *u.Contract
	}
	return card
}

func SetWallet(wallet int64) CardUpdate {
	return CardUpdate{Wallet: &wallet}
}

func SetContract(contract string) CardUpdate {
	return CardUpdate{Contract: &contract}
}
