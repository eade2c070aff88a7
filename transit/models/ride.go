package models

type RideRequest struct {
	CardID      string
	Destination string
}

// Ride is the outcome of a successful ride payment.
type Ride struct {
	CardID      int64
	Destination string
	// Covered is true when the destination is the card's contract region
	// and nothing was debited.
	Covered bool
	Fare    int64
	Wallet  int64
}
