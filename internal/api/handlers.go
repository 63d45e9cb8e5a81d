package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/service"
)

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) sync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Sync.Sync(r.Context(), UserID(r.Context()), service.SyncRequest{
		ConnectionID: req.ConnectionID,
		AccountID:    req.AccountID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := syncResponse{
		Success:           true,
		NewTransactions:   res.NewTransactions,
		Matched:           res.Matched,
		AccountsProcessed: res.AccountsProcessed,
		Duplicates:        res.Duplicates,
	}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, f.Error())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := service.TransactionQuery{AccountID: q.Get("accountId"), Status: q.Get("status")}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		query.Limit = n
	}
	txs, err := s.deps.Transactions.List(r.Context(), UserID(r.Context()), query)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]transactionDTO, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionDTO(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) matchTransaction(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	outcome, err := s.deps.Override.MatchTransaction(r.Context(), UserID(r.Context()), mux.Vars(r)["id"], service.MatchRequest{
		TenantID:        req.TenantID,
		LeaseID:         req.LeaseID,
		TransactionType: req.TransactionType,
		CreateRule:      req.CreateRule,
		RuleConditions:  req.RuleConditions,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := matchResponse{Transaction: toTransactionDTO(outcome.Transaction)}
	if outcome.Rule != nil {
		rule := toRuleDTO(*outcome.Rule)
		resp.Rule = &rule
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) ignoreTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.deps.Override.IgnoreTransaction(r.Context(), UserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

func (s *Server) suggestions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = n
	}
	list, err := s.deps.Suggest.SuggestMatches(r.Context(), UserID(r.Context()), mux.Vars(r)["id"], limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]suggestionDTO, 0, len(list))
	for _, sg := range list {
		out = append(out, suggestionDTO{
			TenantID:      sg.TenantID,
			TenantName:    sg.TenantName,
			LeaseID:       sg.LeaseID,
			Score:         sg.Score,
			AmountMatches: sg.AmountMatches,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.deps.Rules.List(r.Context(), UserID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]ruleDTO, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toRuleDTO(rule))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	rule, err := s.deps.Rules.Create(r.Context(), UserID(r.Context()), req.toInput())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRuleDTO(rule))
}

func (s *Server) updateRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	rule, err := s.deps.Rules.Update(r.Context(), UserID(r.Context()), mux.Vars(r)["id"], req.toInput())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRuleDTO(rule))
}

func (s *Server) deleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Rules.Delete(r.Context(), UserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listConnections(w http.ResponseWriter, r *http.Request) {
	views, err := s.deps.Connections.List(r.Context(), UserID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]connectionDTO, 0, len(views))
	for _, v := range views {
		out = append(out, toConnectionDTO(v.Connection, v.Accounts))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) registerConnection(w http.ResponseWriter, r *http.Request) {
	var req connectionRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	in := service.RegisterConnectionInput{
		ProviderUserID:       req.ProviderUserID,
		ProviderConnectionID: req.ProviderConnectionID,
		BankName:             req.BankName,
		BankLogo:             req.BankLogo,
		BankBIC:              req.BankBIC,
	}
	for _, a := range req.Accounts {
		in.Accounts = append(in.Accounts, service.RegisterAccountInput{
			ProviderAccountID: a.ProviderAccountID,
			IBAN:              a.IBAN,
			Name:              a.Name,
			AccountType:       a.AccountType,
			Currency:          a.Currency,
		})
	}
	conn, accounts, err := s.deps.Connections.Register(r.Context(), UserID(r.Context()), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toConnectionDTO(conn, accounts))
}

func (s *Server) disconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Connections.Disconnect(r.Context(), UserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
