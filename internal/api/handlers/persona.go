package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/concord/internal/domain"
	"github.com/Harshitk-cp/concord/internal/persona"
)

type PersonaHandler struct {
	catalogue *persona.Catalogue
	active    domain.PersonaPair
}

func NewPersonaHandler(catalogue *persona.Catalogue, active domain.PersonaPair) *PersonaHandler {
	return &PersonaHandler{catalogue: catalogue, active: active}
}

type listPersonasResponse struct {
	Personas []domain.Persona  `json:"personas"`
	Active   domain.PersonaPair `json:"active"`
}

func (h *PersonaHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, listPersonasResponse{Personas: h.catalogue.Personas, Active: h.active})
}
