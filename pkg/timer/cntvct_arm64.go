//go:build arm64

package timer

// cntvct reads the virtual counter CNTVCT_EL0. Implemented in cntvct_arm64.s.
func cntvct() uint64

// cntfrq reads the counter frequency CNTFRQ_EL0. Implemented in cntvct_arm64.s.
func cntfrq() uint64

func hardware() (Source, bool) {
	return Source{Name: "cntvct", Now: cntvct, FrequencyHz: cntfrq()}, true
}
