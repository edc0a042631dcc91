package api

import (
	"net/http"

	"codeberg.org/mutker/vitalsd/internal/analytics"
	"codeberg.org/mutker/vitalsd/internal/metric"
	"github.com/gorilla/mux"
)

func (s *Server) respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func userID(r *http.Request) string {
	return mux.Vars(r)["userID"]
}

func (s *Server) handleTimeOfDay(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", analytics.DefaultTimeOfDayDays)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.engine.TimeOfDayAnalysis(r.Context(), userID(r), days)
	s.respond(w, r, out, err)
}

func (s *Server) handleElevation(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", analytics.DefaultElevationDays)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.engine.ElevationCheck(r.Context(), userID(r), days)
	s.respond(w, r, out, err)
}

func (s *Server) handleAgeComparison(w http.ResponseWriter, r *http.Request) {
	age, err := requiredIntParam(r, "age")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.engine.AgeComparison(r.Context(), userID(r), age)
	s.respond(w, r, out, err)
}

func (s *Server) handleVariability(w http.ResponseWriter, r *http.Request) {
	hours, err := intParam(r, "time_window", analytics.DefaultWindowHours)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.engine.HeartRateVariability(r.Context(), userID(r), hours)
	s.respond(w, r, out, err)
}

func (s *Server) handleBaseline(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", analytics.DefaultBaselineDays)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	activity := metric.ActivityLevel(r.URL.Query().Get("activity_level"))
	out, err := s.engine.BaselineComparison(r.Context(), userID(r), days, activity)
	s.respond(w, r, out, err)
}

func (s *Server) handleRestingAverage(w http.ResponseWriter, r *http.Request) {
	out, err := s.engine.RestingAverage(r.Context(), userID(r))
	s.respond(w, r, out, err)
}

func (s *Server) handleLowestSpO2(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", analytics.MaxSpO2Days)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.engine.LowestSpO2(r.Context(), userID(r), days)
	s.respond(w, r, out, err)
}

func (s *Server) handleSpO2Alert(w http.ResponseWriter, r *http.Request) {
	out, err := s.engine.SpO2AlertCheck(r.Context(), userID(r))
	s.respond(w, r, out, err)
}

func (s *Server) handleStepsWeekly(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", analytics.DefaultWeekDays)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.engine.StepsWeeklyAverage(r.Context(), userID(r), days)
	s.respond(w, r, out, err)
}

func (s *Server) handleSleepSufficiency(w http.ResponseWriter, r *http.Request) {
	age, err := requiredIntParam(r, "age")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.engine.SleepSufficiency(r.Context(), userID(r), age)
	s.respond(w, r, out, err)
}

func (s *Server) handleSleepWeekly(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", analytics.DefaultWeekDays)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	age, err := intParam(r, "age", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.engine.SleepWeeklyAverage(r.Context(), userID(r), days, age)
	s.respond(w, r, out, err)
}

func (s *Server) handleDailyAverages(w http.ResponseWriter, r *http.Request) {
	kind, err := kindVar(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	days, err := intParam(r, "days", analytics.DefaultWeekDays)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.engine.DailyAverages(r.Context(), userID(r), kind, days)
	s.respond(w, r, out, err)
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	kind, err := kindVar(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	days, err := intParam(r, "days", analytics.DefaultWeekDays)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.engine.Trend(r.Context(), userID(r), kind, days)
	s.respond(w, r, out, err)
}
