package wire

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/alovak/farecard/transit/models"
)

const (
	Success = "Success"
	Failure = "Failure"
)

type Verb string

const (
	VerbCreateCard      Verb = "create_card"
	VerbCheckCardStatus Verb = "check_card_status"
	VerbPayForRide      Verb = "pay_for_ride"
	VerbFillWallet      Verb = "fill_wallet"
	VerbChangeContract  Verb = "change_contract"
)

// verbUnknown labels requests with an unrecognized verb in logs and metrics.
const verbUnknown Verb = "unknown"

var arity = map[Verb]int{
	VerbCreateCard:      0,
	VerbCheckCardStatus: 1,
	VerbPayForRide:      2,
	VerbFillWallet:      2,
	VerbChangeContract:  2,
}

// Command is one decoded request line.
type Command struct {
	Verb Verb
	Args []string
}

// ParseCommand splits a request into its verb and arguments. Arguments
// beyond what the verb takes are dropped.
func ParseCommand(request string) (Command, error) {
	fields := strings.Fields(request)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty request")
	}
	verb := Verb(fields[0])
	want, ok := arity[verb]
	if !ok {
		return Command{Verb: verbUnknown}, fmt.Errorf("unknown verb %q", fields[0])
	}
	args := fields[1:]
	if len(args) < want {
		return Command{Verb: verb}, fmt.Errorf("%s takes %d arguments, got %d", verb, want, len(args))
	}
	return Command{Verb: verb, Args: args[:want]}, nil
}

func (c Command) String() string {
	return strings.Join(append([]string{string(c.Verb)}, c.Args...), " ")
}

// CardService is the card business logic the handler dispatches to.
type CardService interface {
	CreateCard(ctx context.Context, req models.CreateCard) (*models.Card, error)
	CheckStatus(ctx context.Context, cardID string) (*models.Card, error)
	PayForRide(ctx context.Context, req models.RideRequest) (*models.Ride, error)
	FillWallet(ctx context.Context, cardID, amount string) (*models.Card, error)
	ChangeContract(ctx context.Context, cardID, contract string) (*models.Card, error)
}

// Execute runs cmd against svc and renders the response text. The
// returned error is the service error, if any, for logging and metrics;
// the response is always a valid protocol answer.
func Execute(ctx context.Context, svc CardService, cmd Command) (string, error) {
	switch cmd.Verb {
	case VerbCreateCard:
		card, err := svc.CreateCard(ctx, models.CreateCard{})
		if err != nil {
			return Failure, err
		}
		return strconv.FormatInt(card.ID, 10), nil

	case VerbCheckCardStatus:
		card, err := svc.CheckStatus(ctx, cmd.Args[0])
		if err != nil {
			return render(err, cmd.Args[0], "."), err
		}
		return FormatStatus(card), nil

	case VerbPayForRide:
		_, err := svc.PayForRide(ctx, models.RideRequest{CardID: cmd.Args[0], Destination: cmd.Args[1]})
		return render(err, cmd.Args[0], "."), err

	case VerbFillWallet:
		_, err := svc.FillWallet(ctx, cmd.Args[0], cmd.Args[1])
		return render(err, cmd.Args[0], "!"), err

	case VerbChangeContract:
		_, err := svc.ChangeContract(ctx, cmd.Args[0], cmd.Args[1])
		return render(err, cmd.Args[0], "."), err
	}

	return Failure, fmt.Errorf("unknown verb %q", cmd.Verb)
}

// FormatStatus renders a card for check_card_status.
func FormatStatus(card *models.Card) string {
	return fmt.Sprintf("Card ID: %d, Wallet: %d, Contract: %s", card.ID, card.Wallet, card.Contract)
}

// NotFound renders the missing-card answer. cardID is echoed as sent.
func NotFound(cardID, punct string) string {
	return fmt.Sprintf("Error: Card %s does not exist%s", cardID, punct)
}

func render(err error, cardID, punct string) string {
	switch models.KindOf(err) {
	case models.KindNone:
		return Success
	case models.KindNotFound:
		return NotFound(cardID, punct)
	default:
		return Failure
	}
}
