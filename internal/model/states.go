package model

// PeriodState is the lifecycle stage of an academic period.
type PeriodState string

const (
	PeriodPlanificacion PeriodState = "PLANIFICACION"
	PeriodInscripcion   PeriodState = "INSCRIPCION"
	PeriodSeleccion     PeriodState = "SELECCION"
	PeriodCerrado       PeriodState = "CERRADO"
)

// ExclusivePeriodStates may be held by at most one active period at a time.
var ExclusivePeriodStates = []PeriodState{PeriodPlanificacion, PeriodInscripcion}

// ParsePeriodState returns the state named by s, or false when s is not a period state.
func ParsePeriodState(s string) (PeriodState, bool) {
	switch st := PeriodState(s); st {
	case PeriodPlanificacion, PeriodInscripcion, PeriodSeleccion, PeriodCerrado:
		return st, true
	default:
		return "", false
	}
}

// Exclusive reports whether the state counts against the single-active-period rule.
func (s PeriodState) Exclusive() bool {
	switch s {
	case PeriodPlanificacion, PeriodInscripcion:
		return true
	case PeriodSeleccion, PeriodCerrado:
		return false
	default:
		return false
	}
}

// CanTransitionTo reports whether an administrator may move a period from s to next.
// SELECCION may reopen INSCRIPCION; CERRADO is terminal.
func (s PeriodState) CanTransitionTo(next PeriodState) bool {
	switch s {
	case PeriodPlanificacion:
		return next == PeriodInscripcion || next == PeriodCerrado
	case PeriodInscripcion:
		return next == PeriodSeleccion || next == PeriodCerrado
	case PeriodSeleccion:
		return next == PeriodInscripcion || next == PeriodCerrado
	case PeriodCerrado:
		return false
	default:
		return false
	}
}

// ElectiveState is the approval state of a proposed elective.
type ElectiveState string

const (
	ElectivePendiente ElectiveState = "PENDIENTE"
	ElectiveAprobado  ElectiveState = "APROBADO"
	ElectiveRechazado ElectiveState = "RECHAZADO"
)

// ParseElectiveState returns the state named by s, or false when s is not an elective state.
func ParseElectiveState(s string) (ElectiveState, bool) {
	switch st := ElectiveState(s); st {
	case ElectivePendiente, ElectiveAprobado, ElectiveRechazado:
		return st, true
	default:
		return "", false
	}
}

// CanTransitionTo reports whether review may move an elective from s to next.
// Reviewed electives are immutable.
func (s ElectiveState) CanTransitionTo(next ElectiveState) bool {
	switch s {
	case ElectivePendiente:
		return next == ElectiveAprobado || next == ElectiveRechazado
	case ElectiveAprobado, ElectiveRechazado:
		return false
	default:
		return false
	}
}

// RequestState is the state of an enrollment request.
type RequestState string

const (
	RequestPendiente   RequestState = "PENDIENTE"
	RequestAceptado    RequestState = "ACEPTADO"
	RequestRechazado   RequestState = "RECHAZADO"
	RequestListaEspera RequestState = "LISTA_ESPERA"
)

// AdmissionStates occupy a seat when deciding admission: a pending request is not yet rejected.
var AdmissionStates = []RequestState{RequestAceptado, RequestPendiente}

// PublishedStates occupy a seat in the availability shown to other viewers.
var PublishedStates = []RequestState{RequestAceptado}

// ParseRequestState returns the state named by s, or false when s is not a request state.
func ParseRequestState(s string) (RequestState, bool) {
	switch st := RequestState(s); st {
	case RequestPendiente, RequestAceptado, RequestRechazado, RequestListaEspera:
		return st, true
	default:
		return "", false
	}
}

// CanTransitionTo reports whether department-head review may move a request from s to next.
func (s RequestState) CanTransitionTo(next RequestState) bool {
	switch s {
	case RequestPendiente:
		return next == RequestAceptado || next == RequestRechazado
	case RequestListaEspera:
		return next == RequestPendiente
	case RequestAceptado, RequestRechazado:
		return false
	default:
		return false
	}
}

// Role is the authorization role carried by an authenticated principal.
type Role string

const (
	RoleJefe       Role = "JEFE_DEPARTAMENTO"
	RoleProfesor   Role = "PROFESOR"
	RoleEstudiante Role = "ESTUDIANTE"
)

// ParseRole returns the role named by s, or false when s is not a known role.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleJefe, RoleProfesor, RoleEstudiante:
		return r, true
	default:
		return "", false
	}
}
