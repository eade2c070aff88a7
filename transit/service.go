package transit

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/alovak/farecard/internal/amount"
	"github.com/alovak/farecard/internal/fare"
	"github.com/alovak/farecard/internal/ledger"
	"github.com/alovak/farecard/transit/models"
)

// Service applies the fare-card business rules to the ledger. It is safe
// for concurrent use; per-card consistency comes from ledger.ModifyCard.
type Service struct {
	store           ledger.Store
	fares           *fare.Table
	maxAmountLength int
}

func NewService(store ledger.Store, fares *fare.Table, maxAmountLength int) *Service {
	return &Service{
		store:           store,
		fares:           fares,
		maxAmountLength: maxAmountLength,
	}
}

func (s *Service) CreateCard(ctx context.Context, req models.CreateCard) (*models.Card, error) {
	if req.Wallet < 0 {
		return nil, fmt.Errorf("initial wallet %d: %w", req.Wallet, models.ErrInvalidAmount)
	}
	contract := fare.Normalize(req.Contract)

	id, err := s.store.CreateCard(ctx, req.Wallet, contract)
	if err != nil {
		return nil, fmt.Errorf("creating card: %w", err)
	}

	return &models.Card{ID: id, Wallet: req.Wallet, Contract: contract}, nil
}

func (s *Service) CheckStatus(ctx context.Context, cardID string) (*models.Card, error) {
	id, err := parseCardID(cardID)
	if err != nil {
		return nil, err
	}
	card, err := s.store.GetCard(ctx, id)
	if err != nil {
		return nil, notFound(cardID, err, "finding card")
	}

	return card, nil
}

// PayForRide charges the fare for a ride to req.Destination. A ride to the
// card's contract region is always free, whatever the wallet holds.
func (s *Service) PayForRide(ctx context.Context, req models.RideRequest) (*models.Ride, error) {
	id, err := parseCardID(req.CardID)
	if err != nil {
		return nil, err
	}
	destination := fare.Normalize(req.Destination)
	ride := &models.Ride{CardID: id, Destination: destination}

	card, err := s.store.ModifyCard(ctx, id, func(card models.Card) (models.CardUpdate, error) {
		if card.HasContract() && fare.Normalize(card.Contract) == destination {
			ride.Covered = true
			return models.CardUpdate{}, nil
		}
		price, err := s.fares.FareFor(destination)
		if err != nil {
			return models.CardUpdate{}, fmt.Errorf("destination %q: %w", req.Destination, models.ErrInvalidRegion)
		}
		if card.Wallet-price < 0 {
			return models.CardUpdate{}, fmt.Errorf("fare %d exceeds wallet %d: %w", price, card.Wallet, models.ErrInsufficientFunds)
		}
		ride.Fare = price
		return models.SetWallet(card.Wallet - price), nil
	})
	if err != nil {
		return nil, notFound(req.CardID, err, "paying for ride")
	}
	ride.Wallet = card.Wallet

	return ride, nil
}

// FillWallet tops up the wallet by a positive decimal amount of at most
// the configured number of digits.
func (s *Service) FillWallet(ctx context.Context, cardID, value string) (*models.Card, error) {
	id, err := parseCardID(cardID)
	if err != nil {
		return nil, err
	}
	exists, err := s.store.CardExists(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding card: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("card %s: %w", cardID, models.ErrCardNotFound)
	}

	credit, err := amount.Parse(value, s.maxAmountLength)
	if err != nil {
		if errors.Is(err, amount.ErrInvalid) {
			return nil, fmt.Errorf("%v: %w", err, models.ErrInvalidAmount)
		}
		return nil, fmt.Errorf("parsing amount: %w", err)
	}

	card, err := s.store.ModifyCard(ctx, id, func(card models.Card) (models.CardUpdate, error) {
		wallet, err := amount.Add(card.Wallet, credit)
		if err != nil {
			return models.CardUpdate{}, fmt.Errorf("%v: %w", err, models.ErrInvalidAmount)
		}
		return models.SetWallet(wallet), nil
	})
	if err != nil {
		return nil, notFound(cardID, err, "filling wallet")
	}

	return card, nil
}

// ChangeContract replaces the card's contract region. Setting the region
// the card already has is rejected with ErrContractUnchanged.
func (s *Service) ChangeContract(ctx context.Context, cardID, contract string) (*models.Card, error) {
	id, err := parseCardID(cardID)
	if err != nil {
		return nil, err
	}
	contract = fare.Normalize(contract)

	card, err := s.store.ModifyCard(ctx, id, func(card models.Card) (models.CardUpdate, error) {
		if !s.fares.IsValidRegion(contract) {
			return models.CardUpdate{}, fmt.Errorf("contract %q: %w", contract, models.ErrInvalidRegion)
		}
		if card.Contract == contract {
			return models.CardUpdate{}, fmt.Errorf("contract %q: %w", contract, models.ErrContractUnchanged)
		}
		return models.SetContract(contract), nil
	})
	if err != nil {
		return nil, notFound(cardID, err, "changing contract")
	}

	return card, nil
}

// Fares returns the fare table the service charges from.
func (s *Service) Fares() *fare.Table {
	return s.fares
}

// Ping reports whether the ledger is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// parseCardID maps an external card id onto the ledger's id domain. Ids
// that can never exist are reported as missing cards.
func parseCardID(cardID string) (int64, error) {
	id, err := strconv.ParseInt(cardID, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("card %s: %w", cardID, models.ErrCardNotFound)
	}
	return id, nil
}

// notFound translates ledger.ErrNotFound into models.ErrCardNotFound and
// wraps anything else with the operation name.
func notFound(cardID string, err error, op string) error {
	if errors.Is(err, ledger.ErrNotFound) {
		return fmt.Errorf("card %s: %w", cardID, models.ErrCardNotFound)
	}
	if errors.Is(err, ledger.ErrNegativeWallet) {
		return fmt.Errorf("%s: %v: %w", op, err, models.ErrInsufficientFunds)
	}
	return fmt.Errorf("%s: %w", op, err)
}
