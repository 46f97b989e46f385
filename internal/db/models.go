package db

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Collection names. Field casing inside the documents follows the
// existing production data: Users/Patients use CamelCase keys, the
// clinical collections use snake_case.
const (
	ColUsers          = "Users"
	ColPatients       = "Patients"
	ColAppointments   = "Appointments"
	ColMedications    = "Medications"
	ColPatientHistory = "PatientHistory"
	ColPrescriptions  = "Prescriptions"
	ColInventoryLogs  = "InventoryLogs"
)

// Appointment status values. Pending -> Completed is one-way; either
// state may be deleted by staff.
const (
	ApptStatusPending   = "Pending"
	ApptStatusCompleted = "Completed"
)

// Inventory change-log tags.
const (
	ChangeAddition = "addition"
	ChangeSubtract = "subtract"
)

type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username      string             `bson:"Username" json:"username"`
	Email         string             `bson:"Email" json:"email"`
	Password      string             `bson:"Password" json:"-"`
	Address       string             `bson:"Address" json:"address"`
	ContactNumber string             `bson:"ContactNumber" json:"contact_number"`
	IsStaff       int                `bson:"IsStaff" json:"is_staff"`
}

type Patient struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID primitive.ObjectID `bson:"UserID" json:"user_id"`
	Name   string             `bson:"PatientName" json:"name"`
	NRIC   string             `bson:"NRIC" json:"nric"`
	Gender string             `bson:"PatientGender" json:"gender"`
	Height *float64           `bson:"PatientHeight" json:"height"`
	Weight *float64           `bson:"PatientWeight" json:"weight"`
	DOB    string             `bson:"PatientDOB" json:"dob"`
}

// Appointment occupies one bookable slot: the (Date, Time) pair. Date is
// stored at midnight UTC, Time as "HH:MM" on a 30-minute boundary.
type Appointment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PatientID primitive.ObjectID `bson:"patient_id" json:"patient_id"`
	Date      time.Time          `bson:"appt_date" json:"appt_date"`
	Time      string             `bson:"appt_time" json:"appt_time"`
	Status    string             `bson:"appt_status" json:"appt_status"`
	Reason    string             `bson:"appt_reason" json:"appt_reason"`
}

// Medication carries the authoritative stock count. Quantity must only
// be changed through the inventory ledger so it can never go negative.
type Medication struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Form       string             `bson:"form" json:"form"`
	Dosage     string             `bson:"dosage" json:"dosage"`
	Quantity   int                `bson:"quantity" json:"quantity"`
	Indication string             `bson:"indication" json:"indication"`
}

type HistoryEntry struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PatientID     primitive.ObjectID `bson:"patient_id" json:"patient_id"`
	AppointmentID primitive.ObjectID `bson:"appt_id,omitempty" json:"appt_id"`
	Diagnosis     string             `bson:"diagnosis" json:"diagnosis"`
	Notes         string             `bson:"notes" json:"notes"`
	Date          time.Time          `bson:"date" json:"date"`
}

type Prescription struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PatientID     primitive.ObjectID `bson:"patient_id" json:"patient_id"`
	AppointmentID primitive.ObjectID `bson:"appt_id,omitempty" json:"appt_id"`
	MedicationID  primitive.ObjectID `bson:"med_id" json:"med_id"`
	Dosage        int                `bson:"dosage" json:"dosage"`
	Date          time.Time          `bson:"date" json:"date"`
	Notes         string             `bson:"notes" json:"notes"`
}

// InventoryLog is the append-only audit trail for stock changes. It is
// diagnostic, not authoritative: the medication quantity is the source
// of truth and the log append may be lost on a crash between the two
// writes.
type InventoryLog struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MedicationID    primitive.ObjectID `bson:"med_id" json:"med_id"`
	ChangeType      string             `bson:"change_type" json:"change_type"`
	QuantityChanged int                `bson:"quantity_changed" json:"quantity_changed"`
	Date            time.Time          `bson:"date" json:"date"`
}
