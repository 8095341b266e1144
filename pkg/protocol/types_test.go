package protocol

import (
	"strings"
	"testing"
)

func TestProtocolValidate(t *testing.T) {
	tests := []struct {
		name    string
		proto   Protocol
		wantErr bool
	}{
		{"valid UCI", UCI, false},
		{"valid WinBoard", WinBoard, false},
		{"zero", Protocol(0), true},
		{"out of range", Protocol(3), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.proto.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Protocol.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseProtocol(t *testing.T) {
	tests := []struct {
		input   string
		want    Protocol
		wantErr bool
	}{
		{"1", UCI, false},
		{"2", WinBoard, false},
		{" uci ", UCI, false},
		{"xboard", WinBoard, false},
		{"7", Protocol(7), true},
		{"usi", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseProtocol(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseProtocol() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseProtocol() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUCIDialectCommands(t *testing.T) {
	d := DialectFor(UCI)

	tests := []struct {
		name string
		got  []string
		want string
	}{
		{"discover", d.Discover(), "uci"},
		{"setoption", d.SetOption("Hash", "512"), "setoption name Hash value 512"},
		{"setoption multi-word", d.SetOption("Skill Level", "20"), "setoption name Skill Level value 20"},
		{"position", d.Position("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", ""),
			"position fen rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"},
		{"position with moves", d.Position("startfen", "e2e4 e7e5"), "position fen startfen moves e2e4 e7e5"},
		{"go", d.GoInfinite(), "go infinite"},
		{"stop", d.Stop(), "stop"},
		{"quit", d.Quit(), "quit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if strings.Join(tt.got, "\n") != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}

	if !d.IsTerminator("uciok") {
		t.Error("uciok must terminate the handshake")
	}
	if d.IsTerminator("readyok") {
		t.Error("readyok must not terminate the handshake")
	}
}

func TestWinBoardDialectIsStub(t *testing.T) {
	d := DialectFor(WinBoard)

	if d.Implemented() {
		t.Fatal("WinBoard must report itself as not implemented")
	}
	if d.Protocol() != WinBoard {
		t.Errorf("Protocol() = %v, want %v", d.Protocol(), WinBoard)
	}

	all := [][]string{
		d.Discover(), d.SetOption("Hash", "1"), d.Position("fen", "e2e4"),
		d.GoInfinite(), d.Stop(), d.Quit(),
	}
	for _, lines := range all {
		if len(lines) != 0 {
			t.Errorf("WinBoard dialect emitted %q", lines)
		}
	}
}
