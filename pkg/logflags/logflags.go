package logflags

import (
	"errors"
	"io/ioutil"
	"log"
	"strings"

	"github.com/sirupsen/logrus"
)

var session = false
var eventpump = false
var stopworld = false
var registers = false
var procfs = false
var modules = false
var memory = false

func makeLogger(flag bool, fields logrus.Fields) *logrus.Entry {
	logger := logrus.New().WithFields(fields)
	logger.Logger.Level = logrus.DebugLevel
	if !flag {
		logger.Logger.Level = logrus.PanicLevel
	}
	return logger
}

// Session returns true if the session controller should log state
// transitions.
func Session() bool {
	return session
}

// SessionLogger returns a configured logger for the session controller.
func SessionLogger() *logrus.Entry {
	return makeLogger(session, logrus.Fields{"layer": "session"})
}

// EventPump returns true if the event pump should log every debug event
// it classifies.
func EventPump() bool {
	return eventpump
}

// EventPumpLogger returns a configured logger for the event pump.
func EventPumpLogger() *logrus.Entry {
	return makeLogger(eventpump, logrus.Fields{"layer": "eventpump"})
}

// StopWorld returns true if the stop-the-world coordinator should log
// per-thread stop bookkeeping.
func StopWorld() bool {
	return stopworld
}

// StopWorldLogger returns a configured logger for the stop-the-world
// coordinator.
func StopWorldLogger() *logrus.Entry {
	return makeLogger(stopworld, logrus.Fields{"layer": "stopworld"})
}

// Registers returns true if register bank acquisition/restoration should
// be logged.
func Registers() bool {
	return registers
}

// RegistersLogger returns a configured logger for the register bank.
func RegistersLogger() *logrus.Entry {
	return makeLogger(registers, logrus.Fields{"layer": "registers"})
}

// ProcFs returns true if /proc scraping should be logged.
func ProcFs() bool {
	return procfs
}

// ProcFsLogger returns a configured logger for the procfs reader.
func ProcFsLogger() *logrus.Entry {
	return makeLogger(procfs, logrus.Fields{"layer": "procfs"})
}

// Modules returns true if dynamic-linker module enumeration should be
// logged.
func Modules() bool {
	return modules
}

// ModulesLogger returns a configured logger for the module enumerator.
func ModulesLogger() *logrus.Entry {
	return makeLogger(modules, logrus.Fields{"layer": "modules"})
}

// Memory returns true if memory I/O should be logged.
func Memory() bool {
	return memory
}

// MemoryLogger returns a configured logger for memory I/O.
func MemoryLogger() *logrus.Entry {
	return makeLogger(memory, logrus.Fields{"layer": "memory"})
}

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

// Setup sets logging flags based on the contents of logstr, following the
// same "--log-output is a comma separated list of layer names" convention
// used to gate delve's own package loggers.
func Setup(logFlag bool, logstr string) error {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if !logFlag {
		log.SetOutput(ioutil.Discard)
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "session"
	}
	v := strings.Split(logstr, ",")
	for _, logcmd := range v {
		switch logcmd {
		case "session":
			session = true
		case "eventpump":
			eventpump = true
		case "stopworld":
			stopworld = true
		case "registers":
			registers = true
		case "procfs":
			procfs = true
		case "modules":
			modules = true
		case "memory":
			memory = true
		}
	}
	return nil
}
