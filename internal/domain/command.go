package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CommandName is the verb of a command line.
type CommandName string

const (
	CmdSubscribeSymbols        CommandName = "SUBSCRIBE_SYMBOLS"
	CmdSubscribeSymbolsBarData CommandName = "SUBSCRIBE_SYMBOLS_BAR_DATA"
	CmdGetHistoricData         CommandName = "GET_HISTORIC_DATA"
	CmdGetHistoricTrades       CommandName = "GET_HISTORIC_TRADES"
	CmdOpenOrder               CommandName = "OPEN_ORDER"
	CmdModifyOrder             CommandName = "MODIFY_ORDER"
	CmdCloseOrder              CommandName = "CLOSE_ORDER"
	CmdCloseAllOrders          CommandName = "CLOSE_ALL_ORDERS"
	CmdCloseOrdersBySymbol     CommandName = "CLOSE_ORDERS_BY_SYMBOL"
	CmdCloseOrdersByMagic      CommandName = "CLOSE_ORDERS_BY_MAGIC"
	CmdResetCommandIDs         CommandName = "RESET_COMMAND_IDS"
)

const (
	lineOpen  = "<:"
	lineClose = ":>"
)

// Command is one line written into a command slot file.
type Command struct {
	ID      int
	Name    CommandName
	Payload string
}

// Encode renders the wire line `<:id|NAME|payload:>`.
func (c Command) Encode() string {
	return lineOpen + strconv.Itoa(c.ID) + "|" + string(c.Name) + "|" + c.Payload + lineClose
}

// ParseCommand decodes a wire line produced by Encode.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, lineOpen) || !strings.HasSuffix(line, lineClose) {
		return Command{}, fmt.Errorf("%w: unterminated line %q", ErrInvalidPayload, line)
	}
	body := strings.TrimSuffix(strings.TrimPrefix(line, lineOpen), lineClose)
	parts := strings.SplitN(body, "|", 3)
	if len(parts) != 3 {
		return Command{}, fmt.Errorf("%w: expected id|name|payload, got %q", ErrInvalidPayload, body)
	}
	id, err := strconv.Atoi(parts[0])
	if err != nil {
		return Command{}, fmt.Errorf("%w: bad id: %v", ErrInvalidPayload, err)
	}
	return Command{ID: id, Name: CommandName(parts[1]), Payload: parts[2]}, nil
}

// CheckField rejects strings that would corrupt the positional payload or the line framing.
func CheckField(s string) error {
	if strings.ContainsAny(s, ",|\r\n") || strings.Contains(s, lineOpen) || strings.Contains(s, lineClose) {
		return fmt.Errorf("%w: %q", ErrInvalidPayload, s)
	}
	return nil
}

// JoinFields formats positional arguments the way the host parses them:
// decimals in plain notation, times as epoch seconds (0 for the zero time).
func JoinFields(fields ...any) (string, error) {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		var s string
		switch v := f.(type) {
		case string:
			if err := CheckField(v); err != nil {
				return "", err
			}
			s = v
		case decimal.Decimal:
			s = v.String()
		case int:
			s = strconv.Itoa(v)
		case int64:
			s = strconv.FormatInt(v, 10)
		case time.Time:
			if v.IsZero() {
				s = "0"
			} else {
				s = strconv.FormatInt(v.Unix(), 10)
			}
		default:
			return "", fmt.Errorf("%w: unsupported field type %T", ErrInvalidPayload, f)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ","), nil
}
