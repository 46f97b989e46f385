package web

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"github.com/minasoft/clinic-server/internal/db"
	"github.com/minasoft/clinic-server/internal/validate"
)

func (s *Server) handlePatientDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	claims := sessionFrom(c)

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}

	var user db.User
	if err := s.mgr.Collection(db.ColUsers).FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found, please log in again")
	}

	var patient db.Patient
	if err := s.mgr.Collection(db.ColPatients).FindOne(ctx, bson.M{"UserID": userID}).Decode(&patient); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient details not found")
	}

	cursor, err := s.mgr.Collection(db.ColAppointments).Find(ctx,
		bson.M{"patient_id": patient.ID},
		options.Find().SetSort(bson.D{{Key: "appt_date", Value: -1}, {Key: "appt_time", Value: -1}}),
	)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "appointment lookup failed")
	}
	appointments := []db.Appointment{}
	if err := cursor.All(ctx, &appointments); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "appointment decode failed")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"user":         user,
		"patient":      patient,
		"appointments": appointments,
	})
}

type updateAccountRequest struct {
	Username      string `json:"username"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	Address       string `json:"address"`
	ContactNumber string `json:"contact_number"`
}

func (s *Server) handleUpdateAccount(c echo.Context) error {
	ctx := c.Request().Context()
	claims := sessionFrom(c)

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}

	var req updateAccountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.Address != "" && !validate.SGAddress(req.Address) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid Singapore address: a 6-digit postal code is required")
	}
	if req.ContactNumber != "" && !validate.SGPhone(req.ContactNumber) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid Singapore phone number")
	}

	users := s.mgr.Collection(db.ColUsers)

	// Email uniqueness excludes the caller's own record.
	err = users.FindOne(ctx, bson.M{"Email": req.Email, "_id": bson.M{"$ne": userID}}).Err()
	if err == nil {
		return echo.NewHTTPError(http.StatusConflict, "email is already in use by another account")
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return echo.NewHTTPError(http.StatusInternalServerError, "user lookup failed")
	}

	var current db.User
	if err := users.FindOne(ctx, bson.M{"_id": userID}).Decode(&current); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}

	// An empty password keeps the existing hash.
	password := current.Password
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "password hashing failed")
		}
		password = string(hash)
	}

	_, err = users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{
		"Username":      req.Username,
		"Email":         req.Email,
		"Password":      password,
		"Address":       req.Address,
		"ContactNumber": req.ContactNumber,
	}})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "account update failed")
	}

	// Re-issue the session so the cookie carries the new username.
	token, err := s.issueToken(claims.UserID, req.Username, claims.IsStaff)
	if err == nil {
		s.setSessionCookie(c, token)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "updated"})
}

type bookAppointmentRequest struct {
	Date   string `json:"appt_date"`
	Time   string `json:"appt_time"`
	Reason string `json:"appt_reason"`
}

func (s *Server) handlePatientBookAppointment(c echo.Context) error {
	ctx := c.Request().Context()
	claims := sessionFrom(c)

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}

	var req bookAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Date == "" || req.Time == "" || req.Reason == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "all fields are required")
	}

	date, timeOfDay, err := parseSlot(req.Date, req.Time, time.Now())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var patient db.Patient
	if err := s.mgr.Collection(db.ColPatients).FindOne(ctx, bson.M{"UserID": userID}).Decode(&patient); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient record not found")
	}

	return s.bookSlot(c, patient.ID, date, timeOfDay, req.Reason)
}

// bookSlot is shared by the patient and staff booking handlers: one
// ledger call, then the event publish and response mapping.
func (s *Server) bookSlot(c echo.Context, patientID primitive.ObjectID, date time.Time, timeOfDay, reason string) error {
	ctx := c.Request().Context()

	booked, err := s.booking.BookSlot(ctx, db.Appointment{
		PatientID: patientID,
		Date:      date,
		Time:      timeOfDay,
		Status:    db.ApptStatusPending,
		Reason:    reason,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "booking failed: "+err.Error())
	}

	if !booked {
		s.publisher.BookingRejected(ctx, patientID, date, timeOfDay)
		return echo.NewHTTPError(http.StatusConflict, "this appointment slot is already taken, please choose another time")
	}

	s.publisher.AppointmentBooked(ctx, patientID, date, timeOfDay)
	slog.Info("Appointment booked",
		"patientID", patientID.Hex(),
		"date", date.Format("2006-01-02"),
		"time", timeOfDay)

	return c.JSON(http.StatusCreated, map[string]string{"status": "booked"})
}
