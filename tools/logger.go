package tools

import (
	"log"
	"time"
)

var isEnabled = true
var printTimestamp = false

func EnableLogger() {
	isEnabled = true
}

func DisableLogger() {
	isEnabled = false
}

func EnableLoggerTimestamp() {
	printTimestamp = true
}

func DisableLoggerTimestamp() {
	printTimestamp = false
}

// LogOutput prints user-facing progress messages, independently of the glog
// diagnostic stream, so -silent can mute one without the other.
func LogOutput(val ...interface{}) {
	if !isEnabled {
		return
	}
	if printTimestamp {
		log.Println("[" + time.Now().Format("2006-01-02 15.04:05.000") + "] ")
	}
	log.Println(val...)
}
