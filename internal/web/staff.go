package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
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

// patientSummary is one row of the staff dashboard: patient joined with
// the account and the most recent diagnosis.
type patientSummary struct {
	Patient         db.Patient `json:"patient"`
	User            db.User    `json:"user"`
	LatestDiagnosis string     `json:"latest_diagnosis"`
	DiagnosisDate   string     `json:"diagnosis_date"`
}

func regexFilter(value string) bson.M {
	return bson.M{"$regex": value, "$options": "i"}
}

func genderCode(value string) string {
	switch value {
	case "Male":
		return "M"
	case "Female":
		return "F"
	}
	return value
}

func (s *Server) handleSearchPatients(c echo.Context) error {
	ctx := c.Request().Context()

	userQuery := bson.M{"IsStaff": 0}
	if v := c.QueryParam("user_id"); v != "" {
		id, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid user id format")
		}
		userQuery["_id"] = id
	}
	if v := c.QueryParam("username"); v != "" {
		userQuery["Username"] = regexFilter(v)
	}
	if v := c.QueryParam("email"); v != "" {
		userQuery["Email"] = regexFilter(v)
	}
	if v := c.QueryParam("address"); v != "" {
		userQuery["Address"] = regexFilter(v)
	}
	if v := c.QueryParam("contact_number"); v != "" {
		userQuery["ContactNumber"] = regexFilter(v)
	}

	cursor, err := s.mgr.Collection(db.ColUsers).Find(ctx, userQuery)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "user search failed")
	}
	var users []db.User
	if err := cursor.All(ctx, &users); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "user decode failed")
	}

	patientFilters := bson.M{}
	if v := c.QueryParam("name"); v != "" {
		patientFilters["PatientName"] = regexFilter(v)
	}
	if v := c.QueryParam("nric"); v != "" {
		patientFilters["NRIC"] = regexFilter(v)
	}
	if v := c.QueryParam("gender"); v != "" {
		patientFilters["PatientGender"] = genderCode(v)
	}
	if v := c.QueryParam("height"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			patientFilters["PatientHeight"] = f
		}
	}
	if v := c.QueryParam("weight"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			patientFilters["PatientWeight"] = f
		}
	}
	if v := c.QueryParam("dob"); v != "" {
		patientFilters["PatientDOB"] = v
	}

	diagnosis := c.QueryParam("diagnosis")
	diagnosisDate := c.QueryParam("diagnosis_date")

	results := []patientSummary{}
	for _, user := range users {
		patientQuery := bson.M{"UserID": user.ID}
		for k, v := range patientFilters {
			patientQuery[k] = v
		}

		var patient db.Patient
		err := s.mgr.Collection(db.ColPatients).FindOne(ctx, patientQuery).Decode(&patient)
		if err != nil {
			continue
		}

		diagQuery := bson.M{"patient_id": patient.ID}
		if diagnosis != "" {
			diagQuery["diagnosis"] = regexFilter(diagnosis)
		}
		if diagnosisDate != "" {
			if d, err := time.ParseInLocation("2006-01-02", diagnosisDate, time.UTC); err == nil {
				// History timestamps carry a time of day; match the
				// whole calendar day.
				diagQuery["date"] = bson.M{"$gte": d, "$lt": d.AddDate(0, 0, 1)}
			}
		}

		row := patientSummary{
			Patient:         patient,
			User:            user,
			LatestDiagnosis: "No diagnosis",
			DiagnosisDate:   "N/A",
		}
		var latest db.HistoryEntry
		err = s.mgr.Collection(db.ColPatientHistory).FindOne(ctx, diagQuery,
			options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}}),
		).Decode(&latest)
		if err == nil {
			row.LatestDiagnosis = latest.Diagnosis
			row.DiagnosisDate = latest.Date.Format("2006-01-02")
		} else if (diagnosis != "" || diagnosisDate != "") && errors.Is(err, mongo.ErrNoDocuments) {
			// Diagnosis filters exclude patients without a match.
			continue
		}

		results = append(results, row)
	}

	return c.JSON(http.StatusOK, results)
}

type advancedSearchRequest struct {
	Username      string `json:"username"`
	Email         string `json:"email"`
	Address       string `json:"address"`
	ContactNumber string `json:"contact_number"`
	PatientName   string `json:"patient_name"`
	NRIC          string `json:"nric"`
	Gender        string `json:"gender"`
	DOB           string `json:"dob"`
	Height        string `json:"height"`
	Weight        string `json:"weight"`
	Diagnosis     string `json:"diagnosis"`
	DiagnosisDate string `json:"diagnosis_date"`
}

// handleAdvancedSearch runs the search as one aggregation: Patients
// joined to Users, the latest PatientHistory entry attached, then the
// filters applied server-side.
func (s *Server) handleAdvancedSearch(c echo.Context) error {
	ctx := c.Request().Context()

	var req advancedSearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	match := bson.M{"user.IsStaff": 0}
	if req.Username != "" {
		match["user.Username"] = regexFilter(req.Username)
	}
	if req.Email != "" {
		match["user.Email"] = regexFilter(req.Email)
	}
	if req.Address != "" {
		match["user.Address"] = regexFilter(req.Address)
	}
	if req.ContactNumber != "" {
		match["user.ContactNumber"] = regexFilter(req.ContactNumber)
	}
	if req.PatientName != "" {
		match["PatientName"] = regexFilter(req.PatientName)
	}
	if req.NRIC != "" {
		match["NRIC"] = regexFilter(req.NRIC)
	}
	if req.Gender == "Male" || req.Gender == "Female" {
		match["PatientGender"] = genderCode(req.Gender)
	}
	if req.Height != "" {
		if f, err := strconv.ParseFloat(req.Height, 64); err == nil {
			match["PatientHeight"] = f
		}
	}
	if req.Weight != "" {
		if f, err := strconv.ParseFloat(req.Weight, 64); err == nil {
			match["PatientWeight"] = f
		}
	}
	if req.DOB != "" {
		match["PatientDOB"] = req.DOB
	}
	if req.Diagnosis != "" {
		match["latest_diagnosis"] = regexFilter(req.Diagnosis)
	}
	if req.DiagnosisDate != "" {
		if d, err := time.ParseInLocation("2006-01-02", req.DiagnosisDate, time.UTC); err == nil {
			match["diagnosis_date"] = bson.M{"$gte": d, "$lt": d.AddDate(0, 0, 1)}
		}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$lookup", Value: bson.M{
			"from":         db.ColUsers,
			"localField":   "UserID",
			"foreignField": "_id",
			"as":           "user",
		}}},
		{{Key: "$unwind", Value: "$user"}},
		{{Key: "$lookup", Value: bson.M{
			"from": db.ColPatientHistory,
			"let":  bson.M{"patient_id": "$_id"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{"$patient_id", "$$patient_id"}}}},
				bson.M{"$sort": bson.M{"date": -1}},
				bson.M{"$limit": 1},
			},
			"as": "latest_history",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"latest_diagnosis": bson.M{"$cond": bson.M{
				"if":   bson.M{"$gt": bson.A{bson.M{"$size": "$latest_history"}, 0}},
				"then": bson.M{"$arrayElemAt": bson.A{"$latest_history.diagnosis", 0}},
				"else": "No diagnosis",
			}},
			"diagnosis_date": bson.M{"$cond": bson.M{
				"if":   bson.M{"$gt": bson.A{bson.M{"$size": "$latest_history"}, 0}},
				"then": bson.M{"$arrayElemAt": bson.A{"$latest_history.date", 0}},
				"else": nil,
			}},
		}}},
		{{Key: "$match", Value: match}},
		{{Key: "$project", Value: bson.M{"latest_history": 0, "user.Password": 0}}},
	}

	cursor, err := s.mgr.Collection(db.ColPatients).Aggregate(ctx, pipeline)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed: "+err.Error())
	}
	results := []bson.M{}
	if err := cursor.All(ctx, &results); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "search decode failed")
	}

	return c.JSON(http.StatusOK, results)
}

func (s *Server) handleGetPatient(c echo.Context) error {
	ctx := c.Request().Context()

	patientID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	var patient db.Patient
	if err := s.mgr.Collection(db.ColPatients).FindOne(ctx, bson.M{"_id": patientID}).Decode(&patient); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}

	var user db.User
	if err := s.mgr.Collection(db.ColUsers).FindOne(ctx, bson.M{"_id": patient.UserID}).Decode(&user); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found for the given patient")
	}

	cursor, err := s.mgr.Collection(db.ColPatientHistory).Find(ctx,
		bson.M{"patient_id": patientID},
		options.Find().SetSort(bson.D{{Key: "date", Value: -1}}),
	)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "history lookup failed")
	}
	diagnoses := []db.HistoryEntry{}
	if err := cursor.All(ctx, &diagnoses); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "history decode failed")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"patient":   patient,
		"user":      user,
		"diagnoses": diagnoses,
	})
}

type diagnosisUpdate struct {
	AppointmentID string `json:"appt_id"`
	Diagnosis     string `json:"diagnosis"`
	Date          string `json:"date"`
	Notes         string `json:"notes"`
}

type updatePatientRequest struct {
	PatientName   string            `json:"patient_name"`
	NRIC          string            `json:"nric"`
	Gender        string            `json:"gender"`
	Height        *float64          `json:"height"`
	Weight        *float64          `json:"weight"`
	DOB           string            `json:"dob"`
	Email         string            `json:"email"`
	Username      string            `json:"username"`
	ContactNumber string            `json:"contact_number"`
	Address       string            `json:"address"`
	Password      string            `json:"password"`
	Diagnoses     []diagnosisUpdate `json:"diagnoses"`
}

func (s *Server) handleUpdatePatient(c echo.Context) error {
	ctx := c.Request().Context()

	patientID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	var req updatePatientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	fieldErrors := map[string]string{}
	if !validate.NRIC(req.NRIC) {
		fieldErrors["nric"] = "invalid NRIC format"
	}
	if !validate.SGPhone(req.ContactNumber) {
		fieldErrors["contact_number"] = "invalid phone number format"
	}
	if !validate.SGAddress(req.Address) {
		fieldErrors["address"] = "invalid address: a 6-digit postal code is required"
	}

	var patient db.Patient
	if err := s.mgr.Collection(db.ColPatients).FindOne(ctx, bson.M{"_id": patientID}).Decode(&patient); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}

	// Cross-user uniqueness checks exclude this patient's own account.
	var existing db.User
	err = s.mgr.Collection(db.ColUsers).FindOne(ctx, bson.M{
		"$or": bson.A{
			bson.M{"Email": req.Email},
			bson.M{"ContactNumber": req.ContactNumber},
			bson.M{"Username": req.Username},
		},
		"_id": bson.M{"$ne": patient.UserID},
	}).Decode(&existing)
	if err == nil {
		if existing.Email == req.Email {
			fieldErrors["email"] = "email is already in use"
		}
		if existing.ContactNumber == req.ContactNumber {
			fieldErrors["contact_number"] = "contact number is already in use"
		}
		if existing.Username == req.Username {
			fieldErrors["username"] = "username is already in use"
		}
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return echo.NewHTTPError(http.StatusInternalServerError, "user lookup failed")
	}

	err = s.mgr.Collection(db.ColPatients).FindOne(ctx, bson.M{
		"NRIC": req.NRIC,
		"_id":  bson.M{"$ne": patientID},
	}).Err()
	if err == nil {
		fieldErrors["nric"] = "NRIC is already in use"
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return echo.NewHTTPError(http.StatusInternalServerError, "patient lookup failed")
	}

	if len(fieldErrors) > 0 {
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{"errors": fieldErrors})
	}

	_, err = s.mgr.Collection(db.ColPatients).UpdateOne(ctx, bson.M{"_id": patientID}, bson.M{"$set": bson.M{
		"PatientName":   req.PatientName,
		"NRIC":          req.NRIC,
		"PatientGender": genderCode(req.Gender),
		"PatientHeight": req.Height,
		"PatientWeight": req.Weight,
		"PatientDOB":    req.DOB,
	}})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "patient update failed")
	}

	userUpdate := bson.M{
		"Username":      req.Username,
		"Email":         req.Email,
		"ContactNumber": req.ContactNumber,
		"Address":       req.Address,
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "password hashing failed")
		}
		userUpdate["Password"] = string(hash)
	}
	if _, err := s.mgr.Collection(db.ColUsers).UpdateOne(ctx, bson.M{"_id": patient.UserID}, bson.M{"$set": userUpdate}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "user update failed")
	}

	// One history entry per appointment: update if present, insert
	// otherwise.
	for _, diag := range req.Diagnoses {
		apptID, err := primitive.ObjectIDFromHex(diag.AppointmentID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id: "+diag.AppointmentID)
		}
		date, err := time.ParseInLocation("2006-01-02", diag.Date, time.UTC)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid diagnosis date: "+diag.Date)
		}

		set := bson.M{
			"diagnosis": diag.Diagnosis,
			"date":      date,
			"notes":     diag.Notes,
			"appt_id":   apptID,
		}
		_, err = s.mgr.Collection(db.ColPatientHistory).UpdateOne(ctx,
			bson.M{"patient_id": patientID, "appt_id": apptID},
			bson.M{"$set": set, "$setOnInsert": bson.M{"patient_id": patientID}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "diagnosis update failed")
		}
	}

	slog.Info("Patient updated", "patientID", patientID.Hex())
	return c.JSON(http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleDeletePatient(c echo.Context) error {
	ctx := c.Request().Context()

	patientID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	var patient db.Patient
	if err := s.mgr.Collection(db.ColPatients).FindOne(ctx, bson.M{"_id": patientID}).Decode(&patient); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}

	database := s.mgr.Database()
	database.Collection(db.ColPrescriptions).DeleteMany(ctx, bson.M{"patient_id": patientID})
	database.Collection(db.ColPatientHistory).DeleteMany(ctx, bson.M{"patient_id": patientID})
	database.Collection(db.ColAppointments).DeleteMany(ctx, bson.M{"patient_id": patientID})
	database.Collection(db.ColPatients).DeleteOne(ctx, bson.M{"_id": patientID})
	database.Collection(db.ColUsers).DeleteOne(ctx, bson.M{"_id": patient.UserID})

	slog.Info("Patient deleted", "patientID", patientID.Hex())
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handlePatientRecord(c echo.Context) error {
	ctx := c.Request().Context()

	patientID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	var patient db.Patient
	if err := s.mgr.Collection(db.ColPatients).FindOne(ctx, bson.M{"_id": patientID}).Decode(&patient); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}

	cursor, err := s.mgr.Collection(db.ColPatientHistory).Find(ctx, bson.M{"patient_id": patientID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "history lookup failed")
	}
	history := []db.HistoryEntry{}
	if err := cursor.All(ctx, &history); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "history decode failed")
	}

	// Prescriptions joined with medication names.
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"patient_id": patientID}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         db.ColMedications,
			"localField":   "med_id",
			"foreignField": "_id",
			"as":           "medication_details",
		}}},
		{{Key: "$unwind", Value: "$medication_details"}},
		{{Key: "$project", Value: bson.M{
			"medication_name": "$medication_details.name",
			"dosage":          1,
			"date":            1,
			"notes":           1,
		}}},
	}
	prCursor, err := s.mgr.Collection(db.ColPrescriptions).Aggregate(ctx, pipeline)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "prescription lookup failed")
	}
	prescriptions := []bson.M{}
	if err := prCursor.All(ctx, &prescriptions); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "prescription decode failed")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"patient":       patient,
		"history":       history,
		"prescriptions": prescriptions,
	})
}

type addPrescriptionRequest struct {
	Medication    string `json:"medication"`
	Duration      int    `json:"duration"`
	Notes         string `json:"notes"`
	AppointmentID string `json:"appt_id"`
}

// handleAddPrescription dispenses stock for a prescription. The
// decrement goes through the inventory ledger so two staff prescribing
// the same medication at once cannot drive the stock negative.
func (s *Server) handleAddPrescription(c echo.Context) error {
	ctx := c.Request().Context()

	patientID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	var req addPrescriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Medication == "" || req.Duration <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "medication and a positive duration are required")
	}

	apptID, err := primitive.ObjectIDFromHex(req.AppointmentID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}

	var med db.Medication
	if err := s.mgr.Collection(db.ColMedications).FindOne(ctx, bson.M{"name": req.Medication}).Decode(&med); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "medication not found")
	}

	applied, err := s.inventory.ApplyQuantityDelta(ctx, med.ID, -req.Duration)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "stock update failed: "+err.Error())
	}
	if !applied {
		s.publisher.InventoryDenied(ctx, med.ID, -req.Duration)
		return echo.NewHTTPError(http.StatusConflict, "not enough medication in stock")
	}

	if _, err := s.mgr.Collection(db.ColPrescriptions).InsertOne(ctx, db.Prescription{
		PatientID:     patientID,
		AppointmentID: apptID,
		MedicationID:  med.ID,
		Dosage:        req.Duration,
		Date:          time.Now().UTC(),
		Notes:         req.Notes,
	}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "prescription insert failed")
	}

	if err := s.inventory.RecordChange(ctx, med.ID, -req.Duration); err != nil {
		// Best-effort audit append; the stock count is already correct.
		slog.Error("Inventory log append failed", "medicationID", med.ID.Hex(), "error", err)
	}
	s.publisher.PrescriptionIssued(ctx, patientID, med.ID, req.Duration)

	slog.Info("Prescription added",
		"patientID", patientID.Hex(),
		"medication", med.Name,
		"dosage", req.Duration)

	return c.JSON(http.StatusCreated, map[string]string{"status": "prescribed"})
}

type addHistoryRequest struct {
	Diagnosis     string `json:"diagnosis"`
	Notes         string `json:"notes"`
	AppointmentID string `json:"appt_id"`
}

func (s *Server) handleAddHistory(c echo.Context) error {
	ctx := c.Request().Context()

	patientID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	var req addHistoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Diagnosis == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "diagnosis is required")
	}

	apptID, err := primitive.ObjectIDFromHex(req.AppointmentID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}

	if _, err := s.mgr.Collection(db.ColPatientHistory).InsertOne(ctx, db.HistoryEntry{
		PatientID:     patientID,
		AppointmentID: apptID,
		Diagnosis:     req.Diagnosis,
		Notes:         req.Notes,
		Date:          time.Now().UTC(),
	}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "history insert failed")
	}

	return c.JSON(http.StatusCreated, map[string]string{"status": "recorded"})
}

// handleUpcomingAppointments lists pending appointments for the next
// seven days, earliest first.
func (s *Server) handleUpcomingAppointments(c echo.Context) error {
	ctx := c.Request().Context()

	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, bookingWindowDays)

	cursor, err := s.mgr.Collection(db.ColAppointments).Find(ctx,
		bson.M{
			"appt_date":   bson.M{"$gte": start, "$lte": end},
			"appt_status": db.ApptStatusPending,
		},
		options.Find().SetSort(bson.D{{Key: "appt_date", Value: 1}, {Key: "appt_time", Value: 1}}),
	)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "appointment lookup failed")
	}
	appointments := []db.Appointment{}
	if err := cursor.All(ctx, &appointments); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "appointment decode failed")
	}

	return c.JSON(http.StatusOK, appointments)
}

type staffBookRequest struct {
	NRIC   string `json:"patient_nric"`
	Date   string `json:"appt_date"`
	Time   string `json:"appt_time"`
	Reason string `json:"appt_reason"`
}

func (s *Server) handleStaffBookAppointment(c echo.Context) error {
	ctx := c.Request().Context()

	var req staffBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.NRIC == "" || req.Date == "" || req.Time == "" || req.Reason == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "all fields are required")
	}

	date, timeOfDay, err := parseSlot(req.Date, req.Time, time.Now())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var patient db.Patient
	if err := s.mgr.Collection(db.ColPatients).FindOne(ctx, bson.M{"NRIC": req.NRIC}).Decode(&patient); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient NRIC not found")
	}

	return s.bookSlot(c, patient.ID, date, timeOfDay, req.Reason)
}

type editAppointmentRequest struct {
	Date   string `json:"appt_date"`
	Time   string `json:"appt_time"`
	Status string `json:"appt_status"`
	Reason string `json:"appt_reason"`
}

// handleEditAppointment is a plain update: staff edits of existing
// appointments are not routed through the booking ledger, matching the
// behavior this system has always had.
func (s *Server) handleEditAppointment(c echo.Context) error {
	ctx := c.Request().Context()

	apptID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}

	var req editAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	date, err := time.ParseInLocation("2006-01-02", req.Date, time.UTC)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date format")
	}
	if req.Status != db.ApptStatusPending && req.Status != db.ApptStatusCompleted {
		return echo.NewHTTPError(http.StatusBadRequest, "status must be Pending or Completed")
	}

	res, err := s.mgr.Collection(db.ColAppointments).UpdateOne(ctx, bson.M{"_id": apptID}, bson.M{"$set": bson.M{
		"appt_date":   date,
		"appt_time":   req.Time,
		"appt_status": req.Status,
		"appt_reason": req.Reason,
	}})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "appointment update failed")
	}
	if res.MatchedCount == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleCompleteAppointment(c echo.Context) error {
	ctx := c.Request().Context()

	apptID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}

	res, err := s.mgr.Collection(db.ColAppointments).UpdateOne(ctx,
		bson.M{"_id": apptID},
		bson.M{"$set": bson.M{"appt_status": db.ApptStatusCompleted}},
	)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "appointment update failed")
	}
	if res.MatchedCount == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}

	return c.JSON(http.StatusOK, map[string]string{"status": db.ApptStatusCompleted})
}

func (s *Server) handleDeleteAppointment(c echo.Context) error {
	ctx := c.Request().Context()

	apptID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}

	if _, err := s.mgr.Collection(db.ColAppointments).DeleteOne(ctx, bson.M{"_id": apptID}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "appointment delete failed")
	}

	return c.NoContent(http.StatusNoContent)
}
