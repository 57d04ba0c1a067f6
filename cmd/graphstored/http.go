package main

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"graphstore.dev/facade"
	"graphstore.dev/filter"
	"graphstore.dev/graphstoreerr"
	"graphstore.dev/identifier"
	"graphstore.dev/knowledge"
	"graphstore.dev/ontology"
)

// translateError maps a graphstoreerr.Kind onto the HTTP status code the
// request surface's own error-handling design assigns it; an error of any
// other shape falls back to 500.
func translateError(err error) error {
	gerr, ok := err.(*graphstoreerr.Error)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	status := http.StatusInternalServerError
	switch gerr.Kind {
	case graphstoreerr.NotFoundKind:
		status = http.StatusNotFound
	case graphstoreerr.AlreadyExists, graphstoreerr.Conflict, graphstoreerr.TemporalConflict:
		status = http.StatusConflict
	case graphstoreerr.InvalidInput, graphstoreerr.FilterValidation, graphstoreerr.PathUnknown,
		graphstoreerr.TypeMismatch, graphstoreerr.CursorDecode, graphstoreerr.EitherMode,
		graphstoreerr.ValidationFailed:
		status = http.StatusBadRequest
	case graphstoreerr.PermissionDenied:
		status = http.StatusForbidden
	case graphstoreerr.DeadlineExceeded:
		status = http.StatusGatewayTimeout
	case graphstoreerr.Unavailable:
		status = http.StatusServiceUnavailable
	}
	return echo.NewHTTPError(status, gerr.Error())
}

// registerRoutes wires the facade's request surface onto a handful of JSON
// endpoints. This is illustrative rather than exhaustive: it demonstrates
// the wire DTO translation every facade call needs (identifiers round-trip
// through their String()/Parse forms, since none of the domain types carry
// JSON tags of their own), not a complete REST binding of every facade
// method.
func registerRoutes(e *echo.Echo, svc *facade.Service) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	e.POST("/entity-types", handleCreateEntityType(svc))
	e.POST("/entities", handleCreateEntity(svc))
	e.GET("/entities", handleGetEntities(svc))
}

func actorFromRequest(c echo.Context) (identifier.ActorId, error) {
	return identifier.ParseActorId(c.Request().Header.Get("X-Actor-Id"))
}

type createEntityTypeRequest struct {
	BaseUrl                      string   `json:"baseUrl"`
	Version                      uint32   `json:"version"`
	Title                        string   `json:"title"`
	Schema                       json.RawMessage `json:"schema"`
	Abstract                     bool     `json:"abstract"`
	InheritsFrom                 []string `json:"inheritsFrom"`
	ConstrainsPropertiesOn       []string `json:"constrainsPropertiesOn"`
	ConstrainsLinksOn            []string `json:"constrainsLinksOn"`
	ConstrainsLinkDestinationsOn []string `json:"constrainsLinkDestinationsOn"`
}

func parseVersionedUrls(raw []string) ([]identifier.VersionedUrl, error) {
	out := make([]identifier.VersionedUrl, 0, len(raw))
	for _, s := range raw {
		v, err := identifier.ParseVersionedUrl(s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func handleCreateEntityType(svc *facade.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := actorFromRequest(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}
		var req createEntityTypeRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		base, err := identifier.ParseBaseUrl(req.BaseUrl)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		inheritsFrom, err := parseVersionedUrls(req.InheritsFrom)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		constrainsProperties, err := parseVersionedUrls(req.ConstrainsPropertiesOn)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		constrainsLinks, err := parseVersionedUrls(req.ConstrainsLinksOn)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		constrainsLinkDestinations, err := parseVersionedUrls(req.ConstrainsLinkDestinationsOn)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		et := &ontology.EntityType{
			Edition:                      ontology.Edition{RecordId: identifier.NewVersionedUrl(base, req.Version)},
			Schema:                       req.Schema,
			Title:                        req.Title,
			Abstract:                     req.Abstract,
			InheritsFrom:                 inheritsFrom,
			ConstrainsPropertiesOn:       constrainsProperties,
			ConstrainsLinksOn:            constrainsLinks,
			ConstrainsLinkDestinationsOn: constrainsLinkDestinations,
		}
		if err := svc.CreateEntityType(c.Request().Context(), actor, et); err != nil {
			return translateError(err)
		}
		return c.JSON(http.StatusCreated, echo.Map{"recordId": et.RecordId.String()})
	}
}

type createEntityRequest struct {
	WebId      string                     `json:"webId"`
	Types      []string                   `json:"types"`
	Properties map[string]json.RawMessage `json:"properties"`
}

func handleCreateEntity(svc *facade.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := actorFromRequest(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}
		var req createEntityRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		web, err := identifier.ParseWebId(req.WebId)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		types, err := parseVersionedUrls(req.Types)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		ed := &knowledge.Edition{
			EntityId:   identifier.EntityId{WebId: web, Uuid: identifier.NewEntityUuid()},
			Types:      types,
			Properties: knowledge.Properties(req.Properties),
		}
		if err := svc.CreateEntity(c.Request().Context(), actor, ed); err != nil {
			return translateError(err)
		}
		return c.JSON(http.StatusCreated, echo.Map{"entityId": ed.EntityId.String()})
	}
}

type entityResponse struct {
	EntityId   string                     `json:"entityId"`
	Types      []string                   `json:"types"`
	Properties map[string]json.RawMessage `json:"properties"`
}

func handleGetEntities(svc *facade.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := actorFromRequest(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}
		f := filter.All()
		editions, err := svc.GetEntities(c.Request().Context(), actor, facade.GetEntitiesRequest{Filter: &f})
		if err != nil {
			return translateError(err)
		}

		out := make([]entityResponse, 0, len(editions))
		for _, ed := range editions {
			types := make([]string, 0, len(ed.Types))
			for _, t := range ed.Types {
				types = append(types, t.String())
			}
			out = append(out, entityResponse{
				EntityId:   ed.EntityId.String(),
				Types:      types,
				Properties: ed.Properties,
			})
		}
		return c.JSON(http.StatusOK, out)
	}
}
