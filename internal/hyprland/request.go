package hyprland

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

const (
	// FlagJSON asks Hyprland to answer in JSON instead of plain text.
	FlagJSON = "j"

	// batchPrefix marks a request carrying several ';'-separated commands.
	batchPrefix = "[[BATCH]]"

	// MaxRequestSize is the largest request written in one message. Hyprland
	// reads requests into a fixed 8 KiB buffer.
	MaxRequestSize = 8192

	// MaxResponseSize is the maximum accepted reply size (8 MiB). The
	// clients list of a busy session is far below it.
	MaxResponseSize = 8 << 20

	// replyOK is the body of a successful dispatch or keyword reply.
	replyOK = "ok"
)

// ErrResponseTooLarge is returned when a reply exceeds MaxResponseSize.
var ErrResponseTooLarge = errors.New("response too large")

// ErrRequestTooLarge is returned when a request exceeds MaxRequestSize.
var ErrRequestTooLarge = errors.New("request too large")

// ErrInvalidCommand is returned for commands that cannot be encoded, such as
// a batched command containing the ';' separator.
var ErrInvalidCommand = errors.New("invalid command")

// ErrRejected is returned when Hyprland answers a command with anything other
// than "ok".
var ErrRejected = errors.New("command rejected")

// ///////////////////////////////////////////////
// Request Encoding
// ///////////////////////////////////////////////

// EncodeRequest builds a single request: [flags/]command.
func EncodeRequest(flags, command string) (string, error) {
	if command == "" {
		return "", fmt.Errorf("%w: empty command", ErrInvalidCommand)
	}
	req := command
	if flags != "" {
		req = flags + "/" + command
	}
	if len(req) > MaxRequestSize {
		return "", fmt.Errorf("%w: %d bytes (max %d)", ErrRequestTooLarge, len(req), MaxRequestSize)
	}
	return req, nil
}

// EncodeBatch builds a batch request: [[BATCH]]cmd1;cmd2;...
func EncodeBatch(commands []string) (string, error) {
	if len(commands) == 0 {
		return "", fmt.Errorf("%w: empty batch", ErrInvalidCommand)
	}
	for _, c := range commands {
		if c == "" || strings.Contains(c, ";") {
			return "", fmt.Errorf("%w: %q cannot be batched", ErrInvalidCommand, c)
		}
	}
	req := batchPrefix + strings.Join(commands, ";")
	if len(req) > MaxRequestSize {
		return "", fmt.Errorf("%w: %d bytes (max %d)", ErrRequestTooLarge, len(req), MaxRequestSize)
	}
	return req, nil
}

// SplitBatches groups commands into as few batches as possible while keeping
// each encoded batch within MaxRequestSize. Order is preserved. A single
// command that cannot fit on its own is returned as its own group and will
// fail to encode.
func SplitBatches(commands []string) [][]string {
	var (
		out  [][]string
		cur  []string
		size = len(batchPrefix)
	)
	for _, c := range commands {
		add := len(c)
		if len(cur) > 0 {
			add++ // separator
		}
		if len(cur) > 0 && size+add > MaxRequestSize {
			out = append(out, cur)
			cur = nil
			size = len(batchPrefix)
			add = len(c)
		}
		cur = append(cur, c)
		size += add
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// ///////////////////////////////////////////////
// Response Decoding
// ///////////////////////////////////////////////

// ReadResponse reads a full reply from reader. Hyprland closes the connection
// after replying, so the reply ends at EOF.
func ReadResponse(reader io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(reader, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if len(data) > MaxResponseSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, MaxResponseSize)
	}
	return data, nil
}

// CheckOK verifies the reply to n commands. Batched replies concatenate one
// "ok" per command, with or without whitespace between them.
func CheckOK(reply []byte, n int) error {
	compact := strings.Join(strings.Fields(string(reply)), "")
	if n > 0 && compact == strings.Repeat(replyOK, n) {
		return nil
	}
	msg := strings.TrimSpace(string(reply))
	if msg == "" {
		msg = "empty reply"
	}
	return fmt.Errorf("%w: %s", ErrRejected, msg)
}
