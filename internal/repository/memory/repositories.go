package memory

import (
	"context"
	"sort"

	"ridepool/internal/domain"
	"ridepool/internal/repository"
)

type riderRow struct {
	domain.Rider
	seq int64
}

type requestRow struct {
	domain.Request
	seq int64
}

type vehicleRow struct {
	domain.Vehicle
	seq int64
}

type poolRow struct {
	domain.Pool
	seq int64
}

type memberRow struct {
	domain.Membership
	seq int64
}

// ──────────────────────────────────────────────
// RIDERS
// ──────────────────────────────────────────────

type riderRepo struct{ base }

func (r *riderRepo) Create(ctx context.Context, rider *domain.Rider) error {
	defer r.lock()()
	st := r.state()
	for _, row := range st.riders {
		if row.Phone == rider.Phone {
			return repository.ErrDuplicatePhone
		}
	}
	st.riders[rider.ID] = riderRow{Rider: *rider, seq: st.next()}
	return nil
}

func (r *riderRepo) GetByID(ctx context.Context, id string) (*domain.Rider, error) {
	defer r.lock()()
	row, ok := r.state().riders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	rider := row.Rider
	return &rider, nil
}

func (r *riderRepo) GetByPhone(ctx context.Context, phone string) (*domain.Rider, error) {
	defer r.lock()()
	for _, row := range r.state().riders {
		if row.Phone == phone {
			rider := row.Rider
			return &rider, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *riderRepo) GetAll(ctx context.Context) ([]*domain.Rider, error) {
	defer r.lock()()
	rows := make([]riderRow, 0, len(r.state().riders))
	for _, row := range r.state().riders {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })

	riders := make([]*domain.Rider, 0, len(rows))
	for _, row := range rows {
		rider := row.Rider
		riders = append(riders, &rider)
	}
	return riders, nil
}

// ──────────────────────────────────────────────
// REQUESTS
// ──────────────────────────────────────────────

type requestRepo struct{ base }

func (r *requestRepo) Create(ctx context.Context, req *domain.Request) error {
	defer r.lock()()
	st := r.state()
	st.requests[req.ID] = requestRow{Request: *req, seq: st.next()}
	return nil
}

func (r *requestRepo) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	defer r.lock()()
	return r.get(id)
}

func (r *requestRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Request, error) {
	defer r.lock()()
	return r.get(id)
}

func (r *requestRepo) get(id string) (*domain.Request, error) {
	row, ok := r.state().requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	req := row.Request
	return &req, nil
}

func (r *requestRepo) ListPending(ctx context.Context) ([]*domain.Request, error) {
	defer r.lock()()
	var rows []requestRow
	for _, row := range r.state().requests {
		if row.Status == domain.RequestStatusPending {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return rows[i].seq < rows[j].seq
	})
	return requestsOf(rows), nil
}

func (r *requestRepo) GetAll(ctx context.Context) ([]*domain.Request, error) {
	defer r.lock()()
	rows := make([]requestRow, 0, len(r.state().requests))
	for _, row := range r.state().requests {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })
	if len(rows) > 100 {
		rows = rows[:100]
	}
	return requestsOf(rows), nil
}

func (r *requestRepo) Update(ctx context.Context, req *domain.Request) error {
	defer r.lock()()
	st := r.state()
	row, ok := st.requests[req.ID]
	if !ok {
		return repository.ErrNotFound
	}
	row.Request = *req
	st.requests[req.ID] = row
	return nil
}

func requestsOf(rows []requestRow) []*domain.Request {
	out := make([]*domain.Request, 0, len(rows))
	for _, row := range rows {
		req := row.Request
		out = append(out, &req)
	}
	return out
}

// ──────────────────────────────────────────────
// VEHICLES
// ──────────────────────────────────────────────

type vehicleRepo struct{ base }

func (r *vehicleRepo) Create(ctx context.Context, v *domain.Vehicle) error {
	defer r.lock()()
	st := r.state()
	st.vehicles[v.ID] = vehicleRow{Vehicle: *v, seq: st.next()}
	return nil
}

func (r *vehicleRepo) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	defer r.lock()()
	return r.get(id)
}

func (r *vehicleRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Vehicle, error) {
	defer r.lock()()
	return r.get(id)
}

func (r *vehicleRepo) get(id string) (*domain.Vehicle, error) {
	row, ok := r.state().vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	v := row.Vehicle
	return &v, nil
}

func (r *vehicleRepo) GetAll(ctx context.Context) ([]*domain.Vehicle, error) {
	defer r.lock()()
	return r.list(func(vehicleRow) bool { return true }), nil
}

func (r *vehicleRepo) ListAvailableForUpdate(ctx context.Context) ([]*domain.Vehicle, error) {
	defer r.lock()()
	return r.list(func(row vehicleRow) bool {
		return row.Status == domain.VehicleStatusAvailable
	}), nil
}

func (r *vehicleRepo) list(keep func(vehicleRow) bool) []*domain.Vehicle {
	var rows []vehicleRow
	for _, row := range r.state().vehicles {
		if keep(row) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	out := make([]*domain.Vehicle, 0, len(rows))
	for _, row := range rows {
		v := row.Vehicle
		out = append(out, &v)
	}
	return out
}

func (r *vehicleRepo) Update(ctx context.Context, v *domain.Vehicle) error {
	defer r.lock()()
	st := r.state()
	row, ok := st.vehicles[v.ID]
	if !ok {
		return repository.ErrNotFound
	}
	row.Vehicle = *v
	st.vehicles[v.ID] = row
	return nil
}

// ──────────────────────────────────────────────
// POOLS
// ──────────────────────────────────────────────

type poolRepo struct{ base }

func (r *poolRepo) Create(ctx context.Context, p *domain.Pool) error {
	defer r.lock()()
	st := r.state()
	st.pools[p.ID] = poolRow{Pool: *p, seq: st.next()}
	return nil
}

func (r *poolRepo) GetByID(ctx context.Context, id string) (*domain.Pool, error) {
	defer r.lock()()
	return r.get(id)
}

func (r *poolRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Pool, error) {
	defer r.lock()()
	return r.get(id)
}

func (r *poolRepo) get(id string) (*domain.Pool, error) {
	row, ok := r.state().pools[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p := row.Pool
	return &p, nil
}

func (r *poolRepo) ListActiveForUpdate(ctx context.Context) ([]*domain.Pool, error) {
	defer r.lock()()
	var rows []poolRow
	for _, row := range r.state().pools {
		if row.Status == domain.PoolStatusPooled {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	out := make([]*domain.Pool, 0, len(rows))
	for _, row := range rows {
		p := row.Pool
		out = append(out, &p)
	}
	return out, nil
}

func (r *poolRepo) Update(ctx context.Context, p *domain.Pool) error {
	defer r.lock()()
	st := r.state()
	row, ok := st.pools[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	row.Pool = *p
	st.pools[p.ID] = row
	return nil
}

// ──────────────────────────────────────────────
// MEMBERSHIPS
// ──────────────────────────────────────────────

type membershipRepo struct{ base }

func (r *membershipRepo) Create(ctx context.Context, m *domain.Membership) error {
	defer r.lock()()
	st := r.state()
	if _, ok := st.pools[m.PoolID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := st.requests[m.RequestID]; !ok {
		return repository.ErrNotFound
	}
	for _, row := range st.members {
		if row.RequestID == m.RequestID {
			return repository.ErrAlreadyMember
		}
	}
	st.members[m.ID] = memberRow{Membership: *m, seq: st.next()}
	return nil
}

func (r *membershipRepo) ListMembers(ctx context.Context, poolID string) ([]*domain.PoolMember, error) {
	defer r.lock()()
	st := r.state()

	var rows []memberRow
	for _, row := range st.members {
		if row.PoolID == poolID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Sequence != rows[j].Sequence {
			return rows[i].Sequence < rows[j].Sequence
		}
		return rows[i].seq < rows[j].seq
	})

	out := make([]*domain.PoolMember, 0, len(rows))
	for _, row := range rows {
		reqRow, ok := st.requests[row.RequestID]
		if !ok {
			continue
		}
		m := row.Membership
		req := reqRow.Request
		out = append(out, &domain.PoolMember{Membership: &m, Request: &req})
	}
	return out, nil
}

func (r *membershipRepo) GetByRequestID(ctx context.Context, requestID string) (*domain.Membership, error) {
	defer r.lock()()
	for _, row := range r.state().members {
		if row.RequestID == requestID {
			m := row.Membership
			return &m, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *membershipRepo) DeleteByRequestID(ctx context.Context, requestID string) ([]string, error) {
	defer r.lock()()
	st := r.state()
	var poolIDs []string
	for id, row := range st.members {
		if row.RequestID == requestID {
			poolIDs = append(poolIDs, row.PoolID)
			delete(st.members, id)
		}
	}
	return poolIDs, nil
}

func (r *membershipRepo) Update(ctx context.Context, m *domain.Membership) error {
	defer r.lock()()
	st := r.state()
	row, ok := st.members[m.ID]
	if !ok {
		return repository.ErrNotFound
	}
	row.Membership = *m
	st.members[m.ID] = row
	return nil
}
