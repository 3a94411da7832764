// Package dummydb provides thread-safe in-memory implementations of the core
// Repository interfaces for use in tests.
package dummydb

import (
	"sync"

	"github.com/mavuno/sokoni/core/cart"
	"github.com/mavuno/sokoni/core/catalog"
	"github.com/mavuno/sokoni/core/notification"
	"github.com/mavuno/sokoni/core/order"
	"github.com/mavuno/sokoni/core/school"
	"github.com/mavuno/sokoni/core/user"
)

type (
	DB struct {
		user         *userTable
		catalog      *catalogTable
		cart         *cartTable
		order        *orderTable
		notification *notificationTable
		school       *schoolTable
	}

	userTable struct {
		sync.RWMutex
		users    map[string]*user.User
		sessions map[string]*user.Session // by token
	}

	catalogTable struct {
		sync.RWMutex
		categories map[string]*catalog.Category
		products   map[string]*catalog.Product
		reviews    map[string]*catalog.Review
		wishlists  map[string]map[string]bool // userID -> productID set
	}

	cartTable struct {
		sync.RWMutex
		carts map[string]*cart.Cart // by userID
	}

	orderTable struct {
		sync.RWMutex
		orders map[string]*order.Order
	}

	notificationTable struct {
		sync.RWMutex
		notifs map[string]*notification.Notification
	}

	schoolTable struct {
		sync.RWMutex
		students    map[string]*school.Student
		teachers    map[string]*school.Teacher
		classes     map[string]*school.Class
		subjects    map[string]*school.Subject
		enrollments map[string]*school.Enrollment
		attendance  map[string]*school.Attendance
		grades      map[string]*school.Grade
		fees        map[string]*school.Fee
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{
			users:    make(map[string]*user.User),
			sessions: make(map[string]*user.Session),
		},
		catalog: &catalogTable{
			categories: make(map[string]*catalog.Category),
			products:   make(map[string]*catalog.Product),
			reviews:    make(map[string]*catalog.Review),
			wishlists:  make(map[string]map[string]bool),
		},
		cart:         &cartTable{carts: make(map[string]*cart.Cart)},
		order:        &orderTable{orders: make(map[string]*order.Order)},
		notification: &notificationTable{notifs: make(map[string]*notification.Notification)},
		school: &schoolTable{
			students:    make(map[string]*school.Student),
			teachers:    make(map[string]*school.Teacher),
			classes:     make(map[string]*school.Class),
			subjects:    make(map[string]*school.Subject),
			enrollments: make(map[string]*school.Enrollment),
			attendance:  make(map[string]*school.Attendance),
			grades:      make(map[string]*school.Grade),
			fees:        make(map[string]*school.Fee),
		},
	}
	return db, nil
}
