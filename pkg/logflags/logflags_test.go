package logflags

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSetup_allLayersOff(t *testing.T) {
	resetFlags()
	if err := Setup(false, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if Session() || EventPump() || StopWorld() || Registers() || ProcFs() || Modules() || Memory() {
		t.Fatalf("expected all layers to be off")
	}
}

func TestSetup_withoutLogFlagRejectsLogstr(t *testing.T) {
	resetFlags()
	err := Setup(false, "session")
	if err != errLogstrWithoutLog {
		t.Fatalf("expected errLogstrWithoutLog; got <%v>", err)
	}
}

func TestSetup_defaultsToSessionLayer(t *testing.T) {
	resetFlags()
	if err := Setup(true, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !Session() {
		t.Fatalf("expected session layer to be enabled by default")
	}
	if EventPump() || StopWorld() {
		t.Fatalf("expected only the session layer to be enabled")
	}
}

func TestSetup_multipleLayers(t *testing.T) {
	resetFlags()
	if err := Setup(true, "eventpump,registers,modules"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !EventPump() || !Registers() || !Modules() {
		t.Fatalf("expected eventpump, registers and modules layers to be enabled")
	}
	if Session() || StopWorld() || ProcFs() || Memory() {
		t.Fatalf("expected unrequested layers to stay disabled")
	}
}

func TestRegistersLogger_levelFollowsFlag(t *testing.T) {
	resetFlags()
	quiet := RegistersLogger()
	if quiet.Logger.Level != logrus.PanicLevel {
		t.Fatalf("expected a disabled layer to log at panic level only")
	}
	registers = true
	loud := RegistersLogger()
	if loud.Logger.Level != logrus.DebugLevel {
		t.Fatalf("expected an enabled layer to log at debug level")
	}
}

func resetFlags() {
	session = false
	eventpump = false
	stopworld = false
	registers = false
	procfs = false
	modules = false
	memory = false
}
