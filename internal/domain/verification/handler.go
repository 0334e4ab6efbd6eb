package verification

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/hmprotos/dentalverify/internal/eligibility"
	"github.com/hmprotos/dentalverify/internal/platform/auth"
	"github.com/hmprotos/dentalverify/internal/platform/pverify"
	"github.com/hmprotos/dentalverify/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleViewer, auth.RoleVerifier))
	write := api.Group("", auth.RequireRole(auth.RoleVerifier))

	write.POST("/eligibility/checks", h.Check)
	read.POST("/eligibility/flatten", h.Flatten)
	read.POST("/eligibility/project", h.Project)

	read.GET("/patients/:patient/responses", h.List)
	read.GET("/patients/:patient/responses/:response", h.Get)
	read.GET("/patients/:patient/active-plan", h.ActivePlan)
	read.GET("/patients/:patient/responses/:response/projection", h.Projection)
	read.GET("/patients/:patient/responses/:response/usage", h.Usage)
	write.PUT("/patients/:patient/responses/:response/services/:service/usage", h.PatchUsage)
}

// httpError maps service errors onto HTTP statuses.
func httpError(err error) error {
	switch {
	case errors.Is(err, pverify.ErrInvalidForm),
		errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrInvalidPatch),
		errors.Is(err, eligibility.ErrUnknownMode):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, eligibility.ErrServiceNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotProcessed):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, pverify.ErrUpstream), errors.Is(err, pverify.ErrNoToken):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	case errors.Is(err, ErrNoUpstream):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
}

func decodeDocument(c echo.Context) (*eligibility.Response, error) {
	var resp eligibility.Response
	if err := json.NewDecoder(c.Request().Body).Decode(&resp); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid eligibility response: "+err.Error())
	}
	return &resp, nil
}

func sortingMode(c echo.Context) (eligibility.SortingMode, error) {
	mode, err := eligibility.ParseSortingMode(c.QueryParam("mode"))
	if err != nil {
		return 0, httpError(err)
	}
	return mode, nil
}

func (h *Handler) Check(c echo.Context) error {
	var form pverify.Form
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := h.svc.Check(c.Request().Context(), &form)
	if err != nil {
		return httpError(err)
	}
	status := http.StatusCreated
	if result.Cached {
		status = http.StatusOK
	}
	return c.JSON(status, result)
}

func (h *Handler) Flatten(c echo.Context) error {
	resp, err := decodeDocument(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, eligibility.Flatten(resp))
}

func (h *Handler) Project(c echo.Context) error {
	mode, err := sortingMode(c)
	if err != nil {
		return err
	}
	resp, err := decodeDocument(c)
	if err != nil {
		return err
	}
	if !resp.Processed() {
		return httpError(ErrNotProcessed)
	}
	return c.JSON(http.StatusOK, eligibility.ProjectResponse(eligibility.Flatten(resp), mode))
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), c.Param("patient"), pg)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Get(c echo.Context) error {
	stored, err := h.svc.Get(c.Request().Context(), c.Param("patient"), c.Param("response"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, stored)
}

func (h *Handler) ActivePlan(c echo.Context) error {
	plan, err := h.svc.ActivePlan(c.Request().Context(), c.Param("patient"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, plan)
}

func (h *Handler) Projection(c echo.Context) error {
	mode, err := sortingMode(c)
	if err != nil {
		return err
	}
	projections, err := h.svc.Projection(c.Request().Context(), c.Param("patient"), c.Param("response"), mode)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, projections)
}

func (h *Handler) Usage(c echo.Context) error {
	usage, err := h.svc.Usage(c.Request().Context(), c.Param("patient"), c.Param("response"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, usage)
}

func (h *Handler) PatchUsage(c echo.Context) error {
	service, err := url.PathUnescape(c.Param("service"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid service name")
	}
	var patch UsagePatch
	if err := json.NewDecoder(c.Request().Body).Decode(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid usage patch: "+err.Error())
	}
	updated, err := h.svc.PatchUsage(c.Request().Context(), c.Param("patient"), c.Param("response"), service, patch)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, updated)
}
