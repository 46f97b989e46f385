package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/minasoft/clinic-server/internal/db"
	"github.com/minasoft/clinic-server/internal/validate"
)

type registerRequest struct {
	Username      string `json:"username"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	Address       string `json:"address"`
	ContactNumber string `json:"contact_number"`
	Name          string `json:"name"`
	NRIC          string `json:"nric"`
	Gender        string `json:"gender"`
	DOB           string `json:"dob"`
	IsStaff       bool   `json:"is_staff"`
}

func (s *Server) handleRegister(c echo.Context) error {
	ctx := c.Request().Context()

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username, email and password are required")
	}
	if req.Address != "" && !validate.SGAddress(req.Address) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid Singapore address: a 6-digit postal code is required")
	}
	if req.ContactNumber != "" && !validate.SGPhone(req.ContactNumber) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid Singapore phone number")
	}
	if !req.IsStaff && !validate.NRIC(req.NRIC) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid NRIC format")
	}

	users := s.mgr.Collection(db.ColUsers)
	patients := s.mgr.Collection(db.ColPatients)

	// Duplicate checks before insert; the unique indexes back these up
	// against races.
	if err := users.FindOne(ctx, bson.M{"Email": req.Email}).Err(); err == nil {
		return echo.NewHTTPError(http.StatusConflict, "email already registered")
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return echo.NewHTTPError(http.StatusInternalServerError, "user lookup failed")
	}
	if !req.IsStaff {
		if err := patients.FindOne(ctx, bson.M{"NRIC": req.NRIC}).Err(); err == nil {
			return echo.NewHTTPError(http.StatusConflict, "NRIC already registered")
		} else if !errors.Is(err, mongo.ErrNoDocuments) {
			return echo.NewHTTPError(http.StatusInternalServerError, "patient lookup failed")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "password hashing failed")
	}

	isStaff := 0
	if req.IsStaff {
		isStaff = 1
	}

	res, err := users.InsertOne(ctx, db.User{
		Username:      req.Username,
		Email:         req.Email,
		Password:      string(hash),
		Address:       req.Address,
		ContactNumber: req.ContactNumber,
		IsStaff:       isStaff,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return echo.NewHTTPError(http.StatusConflict, "username or email already registered")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "user insert failed")
	}

	userID := res.InsertedID.(primitive.ObjectID)

	if !req.IsStaff {
		// Height and weight stay unset until staff record them.
		if _, err := patients.InsertOne(ctx, db.Patient{
			UserID: userID,
			Name:   req.Name,
			NRIC:   req.NRIC,
			Gender: genderCode(req.Gender),
			DOB:    req.DOB,
		}); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return echo.NewHTTPError(http.StatusConflict, "NRIC already registered")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "patient insert failed")
		}
	}

	slog.Info("Account created", "userID", userID.Hex(), "isStaff", isStaff)
	return c.JSON(http.StatusCreated, map[string]string{"id": userID.Hex()})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c echo.Context) error {
	ctx := c.Request().Context()

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "both username and password are required")
	}

	var user db.User
	err := s.mgr.Collection(db.ColUsers).FindOne(ctx, bson.M{"Username": req.Username}).Decode(&user)
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid login credentials")
	}

	token, err := s.issueToken(user.ID.Hex(), user.Username, user.IsStaff)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "session token failed")
	}
	s.setSessionCookie(c, token)

	slog.Info("User logged in", "userID", user.ID.Hex(), "isStaff", user.IsStaff)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"username": user.Username,
		"is_staff": user.IsStaff,
	})
}

func (s *Server) handleLogout(c echo.Context) error {
	s.clearSessionCookie(c)
	return c.NoContent(http.StatusNoContent)
}

// handleDeleteAccount removes the user and every record tied to the
// linked patient. Deletion racing a pending stock decrement is an
// accepted gap, same as the previous system.
func (s *Server) handleDeleteAccount(c echo.Context) error {
	ctx := c.Request().Context()
	claims := sessionFrom(c)

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}

	database := s.mgr.Database()

	var patient db.Patient
	err = database.Collection(db.ColPatients).FindOne(ctx, bson.M{"UserID": userID}).Decode(&patient)
	switch {
	case err == nil:
		database.Collection(db.ColPrescriptions).DeleteMany(ctx, bson.M{"patient_id": patient.ID})
		database.Collection(db.ColPatientHistory).DeleteMany(ctx, bson.M{"patient_id": patient.ID})
		database.Collection(db.ColAppointments).DeleteMany(ctx, bson.M{"patient_id": patient.ID})
		database.Collection(db.ColPatients).DeleteOne(ctx, bson.M{"UserID": userID})
	case !errors.Is(err, mongo.ErrNoDocuments):
		return echo.NewHTTPError(http.StatusInternalServerError, "patient lookup failed")
	}

	if _, err := database.Collection(db.ColUsers).DeleteOne(ctx, bson.M{"_id": userID}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "account delete failed")
	}

	s.clearSessionCookie(c)
	slog.Info("Account deleted", "userID", userID.Hex())
	return c.NoContent(http.StatusNoContent)
}
