package enums

import "slices"

// PrescriptionStatus tracks a prescription from intake to dispensing.
// Dispensed and rejected are terminal.
type PrescriptionStatus string

const (
	PrescriptionStatusPending   PrescriptionStatus = "pending"
	PrescriptionStatusVerified  PrescriptionStatus = "verified"
	PrescriptionStatusDispensed PrescriptionStatus = "dispensed"
	PrescriptionStatusRejected  PrescriptionStatus = "rejected"
)

var prescriptionStatuses = []PrescriptionStatus{
	PrescriptionStatusPending,
	PrescriptionStatusVerified,
	PrescriptionStatusDispensed,
	PrescriptionStatusRejected,
}

var prescriptionTransitions = map[PrescriptionStatus][]PrescriptionStatus{
	PrescriptionStatusPending:  {PrescriptionStatusVerified, PrescriptionStatusRejected},
	PrescriptionStatusVerified: {PrescriptionStatusDispensed, PrescriptionStatusRejected},
}

func (s PrescriptionStatus) String() string { return string(s) }

func (s PrescriptionStatus) IsValid() bool { return slices.Contains(prescriptionStatuses, s) }

// CanTransitionTo reports whether next is reachable from s in one step.
func (s PrescriptionStatus) CanTransitionTo(next PrescriptionStatus) bool {
	return slices.Contains(prescriptionTransitions[s], next)
}

func ParsePrescriptionStatus(value string) (PrescriptionStatus, error) {
	return parse(prescriptionStatuses, "prescription status", value)
}
