package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"bookstore/internal/domain"
	"bookstore/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memState is the whole database of the in-memory store
type memState struct {
	users       map[uuid.UUID]domain.User
	tokens      map[string]domain.RefreshToken
	addresses   map[addressKey]domain.Address
	books       map[uuid.UUID]domain.Book
	authors     map[uuid.UUID]domain.Author
	bookAuthors map[uuid.UUID][]uuid.UUID
	carts       map[uuid.UUID]domain.Cart // by user id
	items       map[itemKey]int
	orders      map[uuid.UUID]domain.Order
}

type addressKey struct {
	userID uuid.UUID
	kind   domain.AddressType
}

type itemKey struct {
	cartID    uuid.UUID
	productID uuid.UUID
}

func newMemState() *memState {
	return &memState{
		users:       map[uuid.UUID]domain.User{},
		tokens:      map[string]domain.RefreshToken{},
		addresses:   map[addressKey]domain.Address{},
		books:       map[uuid.UUID]domain.Book{},
		authors:     map[uuid.UUID]domain.Author{},
		bookAuthors: map[uuid.UUID][]uuid.UUID{},
		carts:       map[uuid.UUID]domain.Cart{},
		items:       map[itemKey]int{},
		orders:      map[uuid.UUID]domain.Order{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.tokens {
		c.tokens[k] = v
	}
	for k, v := range s.addresses {
		c.addresses[k] = v
	}
	for k, v := range s.books {
		v.Authors = append([]domain.Author(nil), v.Authors...)
		c.books[k] = v
	}
	for k, v := range s.authors {
		c.authors[k] = v
	}
	for k, v := range s.bookAuthors {
		c.bookAuthors[k] = append([]uuid.UUID(nil), v...)
	}
	for k, v := range s.carts {
		c.carts[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.orders {
		v.Items = append([]domain.OrderItem(nil), v.Items...)
		c.orders[k] = v
	}
	return c
}

// memStore is a transactional in-memory database. Transactions are fully
// serialized: WithinTx holds the store lock, works on a copy and swaps the
// copy in on success.
type memStore struct {
	mu    sync.Mutex
	state *memState

	// decrementErr, when set, is returned by every DecrementStock call
	decrementErr error
}

func newMemStore() *memStore {
	return &memStore{state: newMemState()}
}

// memDB is a handle on either the live state or a transaction's copy
type memDB struct {
	store *memStore
	tx    *memState
}

func (d *memDB) do(fn func(s *memState) error) error {
	if d.tx != nil {
		return fn(d.tx)
	}
	d.store.mu.Lock()
	defer d.store.mu.Unlock()
	return fn(d.store.state)
}

func (m *memStore) repos() repository.Repositories {
	return reposFor(&memDB{store: m})
}

func reposFor(db *memDB) repository.Repositories {
	return repository.Repositories{
		Users:         &memUsers{db},
		RefreshTokens: &memTokens{db},
		Addresses:     &memAddresses{db},
		Books:         &memBooks{db},
		Authors:       &memAuthors{db},
		Carts:         &memCarts{db},
		Orders:        &memOrders{db},
	}
}

func (m *memStore) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(reposFor(&memDB{store: m, tx: work})); err != nil {
		return err
	}
	m.state = work
	return nil
}

// interleavedTx runs transactions on store with repositories replaced by
// wrap, letting a test inject writes between a transaction's read and its
// own writes
type interleavedTx struct {
	store *memStore
	wrap  func(repository.Repositories) repository.Repositories
}

func (t interleavedTx) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	return t.store.WithinTx(ctx, func(repos repository.Repositories) error {
		return fn(t.wrap(repos))
	})
}

// snapshot returns a deep copy of the committed state
func (m *memStore) snapshot() *memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// --- seeding helpers ---

func (m *memStore) addUser(balance string) domain.User {
	id := uuid.New()
	hash, _ := hashPassword("password123")
	u := domain.User{
		ID:           id,
		Role:         domain.RoleCustomer,
		Username:     "user_" + id.String()[:8],
		Email:        id.String()[:8] + "@example.com",
		PasswordHash: hash,
		Balance:      decimal.RequireFromString(balance),
		CreatedAt:    time.Now(),
	}
	m.state.users[id] = u
	return u
}

func (m *memStore) addBook(title, price, discount string, quantity int) domain.Book {
	id := uuid.New()
	b := domain.Book{
		Product: domain.Product{
			ID:       id,
			Price:    decimal.RequireFromString(price),
			Discount: decimal.RequireFromString(discount),
			Type:     domain.ProductTypeBook,
		},
		ISBN:     id.String()[:13],
		Title:    title,
		Quantity: quantity,
	}
	m.state.books[id] = b
	return b
}

func (m *memStore) addCartLine(userID, bookID uuid.UUID, quantity int) {
	cart, ok := m.state.carts[userID]
	if !ok {
		cart = domain.Cart{ID: uuid.New(), UserID: userID}
		m.state.carts[userID] = cart
	}
	m.state.items[itemKey{cart.ID, bookID}] = quantity
}

func (m *memStore) addAddress(userID uuid.UUID, kind domain.AddressType) domain.Address {
	a := domain.Address{ID: uuid.New(), UserID: userID, Type: kind, AddressFields: domain.AddressFields{
		Street: "Main St", City: "Oslo", House: "1", Country: "Norway",
	}}
	m.state.addresses[addressKey{userID, kind}] = a
	return a
}

func (m *memStore) addBothAddresses(userID uuid.UUID) {
	m.addAddress(userID, domain.AddressPayment)
	m.addAddress(userID, domain.AddressDelivery)
}

// --- users ---

type memUsers struct{ db *memDB }

func (r *memUsers) Create(ctx context.Context, user *domain.User) error {
	return r.db.do(func(s *memState) error {
		for _, u := range s.users {
			if u.Username == user.Username || u.Email == user.Email {
				return repository.ErrUserAlreadyExists
			}
		}
		s.users[user.ID] = *user
		return nil
	})
}

func (r *memUsers) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var out *domain.User
	err := r.db.do(func(s *memState) error {
		for _, u := range s.users {
			if u.Username == username {
				u := u
				out = &u
				return nil
			}
		}
		return repository.ErrUserNotFound
	})
	return out, err
}

func (r *memUsers) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var out *domain.User
	err := r.db.do(func(s *memState) error {
		u, ok := s.users[id]
		if !ok {
			return repository.ErrUserNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *memUsers) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.FindByID(ctx, id)
}

func (r *memUsers) UpdateProfile(ctx context.Context, user *domain.User) error {
	return r.db.do(func(s *memState) error {
		u, ok := s.users[user.ID]
		if !ok {
			return repository.ErrUserNotFound
		}
		u.Email, u.FirstName, u.MiddleName, u.LastName, u.Phone =
			user.Email, user.FirstName, user.MiddleName, user.LastName, user.Phone
		s.users[user.ID] = u
		return nil
	})
}

func (r *memUsers) UpdateCredentials(ctx context.Context, id uuid.UUID, username, passwordHash string) error {
	return r.db.do(func(s *memState) error {
		u, ok := s.users[id]
		if !ok {
			return repository.ErrUserNotFound
		}
		for otherID, other := range s.users {
			if otherID != id && other.Username == username {
				return repository.ErrUserAlreadyExists
			}
		}
		u.Username, u.PasswordHash = username, passwordHash
		s.users[id] = u
		return nil
	})
}

func (r *memUsers) Credit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.do(func(s *memState) error {
		u, ok := s.users[id]
		if !ok {
			return repository.ErrUserNotFound
		}
		u.Balance = u.Balance.Add(amount)
		s.users[id] = u
		balance = u.Balance
		return nil
	})
	return balance, err
}

func (r *memUsers) Debit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.do(func(s *memState) error {
		u, ok := s.users[id]
		if !ok || u.Balance.LessThan(amount) {
			return repository.ErrInsufficientFunds
		}
		u.Balance = u.Balance.Sub(amount)
		s.users[id] = u
		balance = u.Balance
		return nil
	})
	return balance, err
}

// --- refresh tokens ---

type memTokens struct{ db *memDB }

func (r *memTokens) Create(ctx context.Context, token *domain.RefreshToken) error {
	return r.db.do(func(s *memState) error {
		s.tokens[token.Token] = *token
		return nil
	})
}

func (r *memTokens) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	var out *domain.RefreshToken
	err := r.db.do(func(s *memState) error {
		t, ok := s.tokens[token]
		if !ok {
			return repository.ErrRefreshTokenNotFound
		}
		if t.Revoked {
			return repository.ErrRefreshTokenRevoked
		}
		out = &t
		return nil
	})
	return out, err
}

func (r *memTokens) Revoke(ctx context.Context, token string) error {
	return r.db.do(func(s *memState) error {
		t, ok := s.tokens[token]
		if !ok {
			return repository.ErrRefreshTokenNotFound
		}
		t.Revoked = true
		s.tokens[token] = t
		return nil
	})
}

func (r *memTokens) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.do(func(s *memState) error {
		for k, t := range s.tokens {
			if t.UserID == userID {
				t.Revoked = true
				s.tokens[k] = t
			}
		}
		return nil
	})
}

func (r *memTokens) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.db.do(func(s *memState) error {
		for k, t := range s.tokens {
			if t.ExpiresAt.Before(now) {
				delete(s.tokens, k)
				n++
			}
		}
		return nil
	})
	return n, err
}

// --- addresses ---

type memAddresses struct{ db *memDB }

func (r *memAddresses) Upsert(ctx context.Context, address *domain.Address) error {
	return r.db.do(func(s *memState) error {
		key := addressKey{address.UserID, address.Type}
		if existing, ok := s.addresses[key]; ok {
			address.ID = existing.ID
		} else if address.ID == uuid.Nil {
			address.ID = uuid.New()
		}
		s.addresses[key] = *address
		return nil
	})
}

func (r *memAddresses) FindByUserAndType(ctx context.Context, userID uuid.UUID, kind domain.AddressType) (*domain.Address, error) {
	var out *domain.Address
	err := r.db.do(func(s *memState) error {
		a, ok := s.addresses[addressKey{userID, kind}]
		if !ok {
			return repository.ErrAddressNotFound
		}
		out = &a
		return nil
	})
	return out, err
}

func (r *memAddresses) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error) {
	out := []*domain.Address{}
	err := r.db.do(func(s *memState) error {
		for _, kind := range []domain.AddressType{domain.AddressDelivery, domain.AddressPayment} {
			if a, ok := s.addresses[addressKey{userID, kind}]; ok {
				a := a
				out = append(out, &a)
			}
		}
		return nil
	})
	return out, err
}

// --- books ---

type memBooks struct{ db *memDB }

func (r *memBooks) Create(ctx context.Context, book *domain.Book) error {
	return r.db.do(func(s *memState) error {
		for _, b := range s.books {
			if b.ISBN == book.ISBN {
				return repository.ErrBookAlreadyExists
			}
		}
		s.books[book.ID] = *book
		for _, a := range book.Authors {
			s.bookAuthors[book.ID] = append(s.bookAuthors[book.ID], a.ID)
		}
		return nil
	})
}

func (r *memBooks) Update(ctx context.Context, book *domain.Book) error {
	return r.db.do(func(s *memState) error {
		current, ok := s.books[book.ID]
		if !ok {
			return repository.ErrBookNotFound
		}
		updated := *book
		updated.Quantity = current.Quantity
		updated.ReservedQuantity = current.ReservedQuantity
		s.books[book.ID] = updated
		return nil
	})
}

func (r *memBooks) SetStock(ctx context.Context, id uuid.UUID, quantity, reserved int) error {
	return r.db.do(func(s *memState) error {
		b, ok := s.books[id]
		if !ok {
			return repository.ErrBookNotFound
		}
		b.Quantity = quantity
		b.ReservedQuantity = reserved
		s.books[id] = b
		return nil
	})
}

func (r *memBooks) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Book, error) {
	return r.FindByID(ctx, id)
}

func (r *memBooks) FindByID(ctx context.Context, id uuid.UUID) (*domain.Book, error) {
	var out *domain.Book
	err := r.db.do(func(s *memState) error {
		b, ok := s.books[id]
		if !ok {
			return repository.ErrBookNotFound
		}
		out = &b
		return nil
	})
	return out, err
}

func (r *memBooks) sorted(s *memState, keep func(domain.Book) bool) []*domain.Book {
	out := []*domain.Book{}
	for _, b := range s.books {
		if keep(b) {
			b := b
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

func page(books []*domain.Book, p, size int) []*domain.Book {
	start := (p - 1) * size
	if start >= len(books) {
		return []*domain.Book{}
	}
	end := start + size
	if end > len(books) {
		end = len(books)
	}
	return books[start:end]
}

func (r *memBooks) List(ctx context.Context, p, size int, sortBy string, order repository.SortOrder) ([]*domain.Book, int, error) {
	var out []*domain.Book
	var total int
	err := r.db.do(func(s *memState) error {
		all := r.sorted(s, func(domain.Book) bool { return true })
		total = len(all)
		out = page(all, p, size)
		return nil
	})
	return out, total, err
}

func (r *memBooks) Search(ctx context.Context, query string, p, size int) ([]*domain.Book, int, error) {
	var out []*domain.Book
	var total int
	q := strings.ToLower(query)
	err := r.db.do(func(s *memState) error {
		all := r.sorted(s, func(b domain.Book) bool {
			return strings.Contains(strings.ToLower(b.Title), q) || strings.Contains(strings.ToLower(b.Genre), q)
		})
		total = len(all)
		out = page(all, p, size)
		return nil
	})
	return out, total, err
}

func (r *memBooks) Random(ctx context.Context, limit int) ([]*domain.Book, error) {
	var out []*domain.Book
	err := r.db.do(func(s *memState) error {
		out = page(r.sorted(s, func(domain.Book) bool { return true }), 1, limit)
		return nil
	})
	return out, err
}

func (r *memBooks) ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]*domain.Book, error) {
	var out []*domain.Book
	err := r.db.do(func(s *memState) error {
		out = r.sorted(s, func(b domain.Book) bool {
			for _, id := range s.bookAuthors[b.ID] {
				if id == authorID {
					return true
				}
			}
			return false
		})
		return nil
	})
	return out, err
}

func (r *memBooks) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	if r.db.store.decrementErr != nil {
		return r.db.store.decrementErr
	}
	return r.db.do(func(s *memState) error {
		b, ok := s.books[id]
		if !ok || b.Quantity < quantity {
			return repository.ErrStockConflict
		}
		b.Quantity -= quantity
		s.books[id] = b
		return nil
	})
}

// --- authors ---

type memAuthors struct{ db *memDB }

func (r *memAuthors) Create(ctx context.Context, author *domain.Author) error {
	return r.db.do(func(s *memState) error {
		s.authors[author.ID] = *author
		return nil
	})
}

func (r *memAuthors) Update(ctx context.Context, author *domain.Author) error {
	return r.db.do(func(s *memState) error {
		current, ok := s.authors[author.ID]
		if !ok {
			return repository.ErrAuthorNotFound
		}
		updated := *author
		updated.CreatedAt = current.CreatedAt
		s.authors[author.ID] = updated
		return nil
	})
}

func (r *memAuthors) List(ctx context.Context) ([]*domain.Author, error) {
	out := []*domain.Author{}
	err := r.db.do(func(s *memState) error {
		for _, a := range s.authors {
			a := a
			out = append(out, &a)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].LastName < out[j].LastName })
		return nil
	})
	return out, err
}

func (r *memAuthors) FindByID(ctx context.Context, id uuid.UUID) (*domain.Author, error) {
	var out *domain.Author
	err := r.db.do(func(s *memState) error {
		a, ok := s.authors[id]
		if !ok {
			return repository.ErrAuthorNotFound
		}
		out = &a
		return nil
	})
	return out, err
}

// --- carts ---

type memCarts struct{ db *memDB }

func (r *memCarts) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	var out *domain.Cart
	err := r.db.do(func(s *memState) error {
		c, ok := s.carts[userID]
		if !ok {
			return repository.ErrCartNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (r *memCarts) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	var out *domain.Cart
	err := r.db.do(func(s *memState) error {
		c, ok := s.carts[userID]
		if !ok {
			c = domain.Cart{ID: uuid.New(), UserID: userID, CreatedAt: time.Now()}
			s.carts[userID] = c
		}
		out = &c
		return nil
	})
	return out, err
}

func (r *memCarts) FindItem(ctx context.Context, cartID, productID uuid.UUID) (*domain.CartItem, error) {
	var out *domain.CartItem
	err := r.db.do(func(s *memState) error {
		q, ok := s.items[itemKey{cartID, productID}]
		if !ok {
			return repository.ErrCartItemNotFound
		}
		out = &domain.CartItem{CartID: cartID, ProductID: productID, Quantity: q}
		return nil
	})
	return out, err
}

func (r *memCarts) UpsertItem(ctx context.Context, item *domain.CartItem) error {
	return r.db.do(func(s *memState) error {
		s.items[itemKey{item.CartID, item.ProductID}] = item.Quantity
		return nil
	})
}

func (r *memCarts) DeleteItem(ctx context.Context, cartID, productID uuid.UUID) error {
	return r.db.do(func(s *memState) error {
		delete(s.items, itemKey{cartID, productID})
		return nil
	})
}

func (r *memCarts) ListLines(ctx context.Context, cartID uuid.UUID) ([]domain.CartLine, error) {
	lines := []domain.CartLine{}
	err := r.db.do(func(s *memState) error {
		for k, q := range s.items {
			if k.cartID != cartID {
				continue
			}
			b, ok := s.books[k.productID]
			if !ok {
				continue
			}
			lines = append(lines, domain.CartLine{
				ProductID: b.ID, Title: b.Title, Price: b.Price, Discount: b.Discount,
				Quantity: q, Stock: b.Quantity,
			})
		}
		sort.Slice(lines, func(i, j int) bool {
			return lines[i].ProductID.String() < lines[j].ProductID.String()
		})
		return nil
	})
	return lines, err
}

func (r *memCarts) ListLinesForUpdate(ctx context.Context, cartID uuid.UUID) ([]domain.CartLine, error) {
	return r.ListLines(ctx, cartID)
}

func (r *memCarts) RemoveLines(ctx context.Context, cartID uuid.UUID, productIDs []uuid.UUID) error {
	return r.db.do(func(s *memState) error {
		for _, id := range productIDs {
			delete(s.items, itemKey{cartID, id})
		}
		return nil
	})
}

// --- orders ---

type memOrders struct{ db *memDB }

func (r *memOrders) Create(ctx context.Context, order *domain.Order) error {
	return r.db.do(func(s *memState) error {
		o := *order
		o.Items = append([]domain.OrderItem(nil), order.Items...)
		for i := range o.Items {
			o.Items[i].OrderID = o.ID
		}
		s.orders[o.ID] = o
		return nil
	})
}

func (r *memOrders) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var out *domain.Order
	err := r.db.do(func(s *memState) error {
		o, ok := s.orders[id]
		if !ok {
			return repository.ErrOrderNotFound
		}
		o.Items = append([]domain.OrderItem(nil), o.Items...)
		out = &o
		return nil
	})
	return out, err
}

func (r *memOrders) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	out := []*domain.Order{}
	err := r.db.do(func(s *memState) error {
		for _, o := range s.orders {
			if o.UserID == userID {
				o := o
				out = append(out, &o)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
		return nil
	})
	return out, err
}

func (r *memOrders) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	return r.db.do(func(s *memState) error {
		o, ok := s.orders[id]
		if !ok {
			return repository.ErrOrderNotFound
		}
		o.Status = status
		s.orders[id] = o
		return nil
	})
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []any
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, payload)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}
