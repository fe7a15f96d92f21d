package httpcontroller

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/asmavensocial/installation-dashbaord/internal/survey"
)

// Slot status values reported for each image position of a record.
const (
	SlotStatusOK          = "ok"
	SlotStatusNoImage     = "no_image"
	SlotStatusUnavailable = "unavailable"
)

// SlotImage is one image position of a record as the display layer renders
// it. Encoded carries the base64 payload only when Status is "ok".
type SlotImage struct {
	Label       string `json:"label"`
	Status      string `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Encoded     string `json:"encoded,omitempty"`
	DataURI     string `json:"data_uri,omitempty"`
}

// RecordImagesResponse answers the per-record image endpoint. Every slot is
// always present so the viewer keeps a stable four-panel layout.
type RecordImagesResponse struct {
	Index     int         `json:"index"`
	StoreName string      `json:"store_name"`
	City      string      `json:"city"`
	Images    []SlotImage `json:"images"`
}

type summaryResponse struct {
	survey.Summary
	NotDeployed []survey.NotDeployedDetail `json:"not_deployed_stores"`
}

// recordItem carries a record together with its index in the source order, so
// clients of a filtered listing can still address the record-images endpoint.
type recordItem struct {
	Index int `json:"index"`
	survey.Record
}

type recordsResponse struct {
	Total   int          `json:"total"`
	Records []recordItem `json:"records"`
}

type apiError struct {
	Error string `json:"error"`
}

// filterFromQuery reads the repeatable zone/state/city/channel query
// parameters into a Filter.
func filterFromQuery(c echo.Context) survey.Filter {
	q := c.QueryParams()
	return survey.Filter{
		Zones:    q["zone"],
		States:   q["state"],
		Cities:   q["city"],
		Channels: q["channel"],
	}
}

// handleSummary returns deployment KPIs and the not-deployed detail table for
// the filtered record set.
func (s *Server) handleSummary(c echo.Context) error {
	filter := filterFromQuery(c)
	records := filter.Apply(s.Records)
	return c.JSON(http.StatusOK, summaryResponse{
		Summary:     survey.Summarize(records),
		NotDeployed: survey.NotDeployedDetails(records),
	})
}

// handleRecords returns the filtered record list in source order. Each entry
// carries its source index, the handle accepted by the record-images endpoint.
func (s *Server) handleRecords(c echo.Context) error {
	filter := filterFromQuery(c)
	items := make([]recordItem, 0, len(s.Records))
	for i := range s.Records {
		if filter.Matches(&s.Records[i]) {
			items = append(items, recordItem{Index: i, Record: s.Records[i]})
		}
	}
	return c.JSON(http.StatusOK, recordsResponse{
		Total:   len(items),
		Records: items,
	})
}

// handleFilters returns the distinct values available for each filter
// dimension.
func (s *Server) handleFilters(c echo.Context) error {
	return c.JSON(http.StatusOK, survey.Options(s.Records))
}

// handleRecordImages resolves all four image slots of one record. The
// record's whole window is preloaded first, so stepping through adjacent
// records answers from cache. A slot with no submitted link reports
// "no_image"; a slot whose fetch failed reports "unavailable". Both are
// normal outcomes, not errors.
func (s *Server) handleRecordImages(c echo.Context) error {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, apiError{Error: "record index must be an integer"})
	}
	if index < 0 || index >= len(s.Records) {
		return c.JSON(http.StatusNotFound, apiError{Error: "record index out of range"})
	}

	ctx := c.Request().Context()
	if s.Preloader != nil {
		s.Preloader.PreloadAround(ctx, s.Records, index)
	}

	record := s.Records[index]
	slots := record.ImageSlots()
	images := make([]SlotImage, 0, len(slots))
	for _, slot := range slots {
		images = append(images, s.resolveSlot(c, slot))
	}

	return c.JSON(http.StatusOK, RecordImagesResponse{
		Index:     index,
		StoreName: record.StoreName,
		City:      record.City,
		Images:    images,
	})
}

func (s *Server) resolveSlot(c echo.Context, slot survey.ImageSlot) SlotImage {
	out := SlotImage{Label: slot.Label, Status: SlotStatusNoImage}

	url, ok := s.Normalizer.Normalize(slot.Raw)
	if !ok {
		return out
	}

	img := s.Cache.Resolve(c.Request().Context(), url)
	if !img.Available() {
		out.Status = SlotStatusUnavailable
		return out
	}

	out.Status = SlotStatusOK
	out.ContentType = img.ContentType
	out.Encoded = img.Encoded
	out.DataURI = img.DataURI()
	return out
}
