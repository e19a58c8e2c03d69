package system

import (
	"io"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"
)

// pageBudget is roughly what one in-flight page detection holds: the decoded
// page, the normalized copy and a handful of working-size masks.
const pageBudget = 256 << 20

// DefaultWorkers picks how many pages to scan in parallel: one per logical
// CPU, capped by the memory that is currently available.
func DefaultWorkers() int {
	workers, err := cpu.Counts(true)
	if err != nil || workers < 1 {
		workers = runtime.NumCPU()
	}

	if vm, err := mem.VirtualMemory(); err == nil && vm.Available > 0 {
		byMem := int(vm.Available / pageBudget)
		if byMem < 1 {
			byMem = 1
		}
		if byMem < workers {
			workers = byMem
		}
	}

	return workers
}

// NewLogger builds the process logger. Output always goes to w (stderr in the
// binaries) because stdout carries the JSON result.
func NewLogger(w io.Writer, level, format string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	}

	return log
}
