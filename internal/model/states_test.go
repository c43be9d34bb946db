package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPeriodStateTransitions(t *testing.T) {
	allowed := map[PeriodState][]PeriodState{
		PeriodPlanificacion: {PeriodInscripcion, PeriodCerrado},
		PeriodInscripcion:   {PeriodSeleccion, PeriodCerrado},
		PeriodSeleccion:     {PeriodInscripcion, PeriodCerrado},
		PeriodCerrado:       {},
	}
	all := []PeriodState{PeriodPlanificacion, PeriodInscripcion, PeriodSeleccion, PeriodCerrado}

	for from, targets := range allowed {
		for _, to := range all {
			want := false
			for _, target := range targets {
				if target == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestPeriodStateExclusive(t *testing.T) {
	assert.True(t, PeriodPlanificacion.Exclusive())
	assert.True(t, PeriodInscripcion.Exclusive())
	assert.False(t, PeriodSeleccion.Exclusive())
	assert.False(t, PeriodCerrado.Exclusive())
}

func TestParseStates(t *testing.T) {
	st, ok := ParsePeriodState("INSCRIPCION")
	assert.True(t, ok)
	assert.Equal(t, PeriodInscripcion, st)

	_, ok = ParsePeriodState("inscripcion")
	assert.False(t, ok)

	_, ok = ParseElectiveState("BORRADOR")
	assert.False(t, ok)

	rs, ok := ParseRequestState("LISTA_ESPERA")
	assert.True(t, ok)
	assert.Equal(t, RequestListaEspera, rs)

	role, ok := ParseRole("JEFE_DEPARTAMENTO")
	assert.True(t, ok)
	assert.Equal(t, RoleJefe, role)
}

func TestElectiveReviewIsFinal(t *testing.T) {
	assert.True(t, ElectivePendiente.CanTransitionTo(ElectiveAprobado))
	assert.True(t, ElectivePendiente.CanTransitionTo(ElectiveRechazado))
	assert.False(t, ElectiveAprobado.CanTransitionTo(ElectiveRechazado))
	assert.False(t, ElectiveRechazado.CanTransitionTo(ElectiveAprobado))
	assert.False(t, ElectivePendiente.CanTransitionTo(ElectivePendiente))
}

func TestRequestTransitions(t *testing.T) {
	assert.True(t, RequestPendiente.CanTransitionTo(RequestAceptado))
	assert.True(t, RequestPendiente.CanTransitionTo(RequestRechazado))
	assert.True(t, RequestListaEspera.CanTransitionTo(RequestPendiente))
	assert.False(t, RequestListaEspera.CanTransitionTo(RequestAceptado))
	assert.False(t, RequestAceptado.CanTransitionTo(RequestPendiente))
	assert.False(t, RequestRechazado.CanTransitionTo(RequestPendiente))
}
