package web

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/minasoft/clinic-server/internal/db"
)

const medicationsPerPage = 100

func (s *Server) handleListMedications(c echo.Context) error {
	ctx := c.Request().Context()

	query := bson.M{}
	if v := c.QueryParam("name"); v != "" {
		query["name"] = regexFilter(v)
	}

	page := 1
	if v := c.QueryParam("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}

	meds := s.mgr.Collection(db.ColMedications)
	total, err := meds.CountDocuments(ctx, query)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "medication count failed")
	}
	totalPages := int(math.Ceil(float64(total) / float64(medicationsPerPage)))
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}

	cursor, err := meds.Find(ctx, query, options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetSkip(int64((page-1)*medicationsPerPage)).
		SetLimit(medicationsPerPage))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "medication lookup failed")
	}
	results := []db.Medication{}
	if err := cursor.All(ctx, &results); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "medication decode failed")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"medications": results,
		"page":        page,
		"total_pages": totalPages,
		"total":       total,
	})
}

// handleSearchMedications is the autocomplete endpoint: names only,
// capped at twenty matches.
func (s *Server) handleSearchMedications(c echo.Context) error {
	ctx := c.Request().Context()

	term := c.QueryParam("term")
	if term == "" {
		return c.JSON(http.StatusOK, []string{})
	}

	cursor, err := s.mgr.Collection(db.ColMedications).Find(ctx,
		bson.M{"name": regexFilter(term)},
		options.Find().
			SetProjection(bson.M{"name": 1}).
			SetSort(bson.D{{Key: "name", Value: 1}}).
			SetLimit(20),
	)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "medication search failed")
	}
	var docs []db.Medication
	if err := cursor.All(ctx, &docs); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "medication decode failed")
	}

	names := make([]string, 0, len(docs))
	for _, doc := range docs {
		names = append(names, doc.Name)
	}
	return c.JSON(http.StatusOK, names)
}

type createMedicationRequest struct {
	Name       string `json:"name"`
	Form       string `json:"form"`
	Dosage     string `json:"dosage"`
	Quantity   *int   `json:"quantity"`
	Indication string `json:"indication"`
}

func (s *Server) handleCreateMedication(c echo.Context) error {
	ctx := c.Request().Context()

	var req createMedicationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || req.Form == "" || req.Dosage == "" || req.Quantity == nil || req.Indication == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "all fields are required")
	}
	if *req.Quantity < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "quantity cannot be negative")
	}

	res, err := s.mgr.Collection(db.ColMedications).InsertOne(ctx, db.Medication{
		Name:       req.Name,
		Form:       req.Form,
		Dosage:     req.Dosage,
		Quantity:   *req.Quantity,
		Indication: req.Indication,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "medication insert failed")
	}

	id := res.InsertedID.(primitive.ObjectID)
	slog.Info("Medication created", "medicationID", id.Hex(), "name", req.Name)
	return c.JSON(http.StatusCreated, map[string]string{"id": id.Hex()})
}

type quantityRequest struct {
	Delta *int `json:"delta"`
}

// handleAdjustQuantity applies a signed stock adjustment through the
// inventory ledger. A decrement larger than the remaining stock is
// rejected wholesale; stock never goes below zero.
func (s *Server) handleAdjustQuantity(c echo.Context) error {
	ctx := c.Request().Context()

	medID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid medication id")
	}

	var req quantityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Delta == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "delta is required")
	}
	delta := *req.Delta

	err = s.mgr.Collection(db.ColMedications).FindOne(ctx, bson.M{"_id": medID}).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return echo.NewHTTPError(http.StatusNotFound, "medication not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "medication lookup failed")
	}

	applied, err := s.inventory.ApplyQuantityDelta(ctx, medID, delta)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "stock update failed: "+err.Error())
	}
	if !applied {
		s.publisher.InventoryDenied(ctx, medID, delta)
		return echo.NewHTTPError(http.StatusConflict, "not enough stock for the requested decrement")
	}

	if delta != 0 {
		if err := s.inventory.RecordChange(ctx, medID, delta); err != nil {
			slog.Error("Inventory log append failed", "medicationID", medID.Hex(), "error", err)
		}
	}
	s.publisher.InventoryApplied(ctx, medID, delta)

	slog.Info("Stock adjusted", "medicationID", medID.Hex(), "delta", delta)
	return c.JSON(http.StatusOK, map[string]string{"status": "applied"})
}

func (s *Server) handleDeleteMedication(c echo.Context) error {
	ctx := c.Request().Context()

	medID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid medication id")
	}

	res, err := s.mgr.Collection(db.ColMedications).DeleteOne(ctx, bson.M{"_id": medID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "medication delete failed")
	}
	if res.DeletedCount == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "medication not found")
	}

	slog.Info("Medication deleted", "medicationID", medID.Hex())
	return c.NoContent(http.StatusNoContent)
}
