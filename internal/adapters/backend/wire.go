package backend

import (
	"fmt"
	"strconv"

	"orgconsole/internal/domain/membership"
	"orgconsole/internal/domain/merch"
)

// Page is a Spring-style page of results.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
	First         bool  `json:"first"`
	Last          bool  `json:"last"`
}

func mapPage[A, B any](p Page[A], f func(A) B) Page[B] {
	out := Page[B]{
		Content:       make([]B, len(p.Content)),
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
		Number:        p.Number,
		Size:          p.Size,
		First:         p.First,
		Last:          p.Last,
	}
	for i, v := range p.Content {
		out.Content[i] = f(v)
	}
	return out
}

// BulkMembershipRequest is the body of POST /api/student-memberships/bulk.
type BulkMembershipRequest struct {
	StudentIDs []string `json:"studentIds"`
	YearStart  int      `json:"yearStart"`
	YearEnd    int      `json:"yearEnd"`
}

// BulkPaymentRequest is the body of POST /api/merch-customers/bulk-payment.
type BulkPaymentRequest struct {
	Entries            []string `json:"entries"`
	MerchVariantItemID int64    `json:"merchVariantItemId"`
	Quantity           int      `json:"quantity"`
}

type membershipDTO struct {
	MembershipID int64  `json:"membershipId"`
	StudentID    string `json:"studentId"`
	StudentName  string `json:"studentName"`
	DateJoined   string `json:"dateJoined"`
	Active       bool   `json:"active"`
	YearStart    int    `json:"yearStart"`
	YearEnd      int    `json:"yearEnd"`
}

func (d membershipDTO) toDomain() membership.Membership {
	return membership.Membership{
		MembershipID: d.MembershipID,
		StudentID:    d.StudentID,
		StudentName:  d.StudentName,
		DateJoined:   d.DateJoined,
		Active:       d.Active,
		YearStart:    d.YearStart,
		YearEnd:      d.YearEnd,
	}
}

type customerDTO struct {
	OrderID     int64   `json:"orderId"`
	StudentID   string  `json:"studentId"`
	StudentName string  `json:"studentName"`
	YearLevel   any     `json:"yearLevel"`
	Design      string  `json:"design"`
	Color       string  `json:"color"`
	Size        string  `json:"size"`
	Quantity    int     `json:"quantity"`
	TotalPrice  float64 `json:"totalPrice"`
	OrderStatus string  `json:"orderStatus"`
	OrderDate   string  `json:"orderDate"`
}

func (d customerDTO) toDomain() merch.Customer {
	return merch.Customer{
		OrderID:     d.OrderID,
		StudentID:   d.StudentID,
		StudentName: d.StudentName,
		YearLevel:   yearLevel(d.YearLevel),
		Design:      d.Design,
		Color:       d.Color,
		Size:        d.Size,
		Quantity:    d.Quantity,
		TotalPrice:  d.TotalPrice,
		OrderStatus: d.OrderStatus,
		OrderDate:   d.OrderDate,
	}
}

// yearLevel accepts the number or string forms the backend has used.
func yearLevel(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

type orderDTO struct {
	OrderID            int64   `json:"orderId"`
	StudentID          string  `json:"studentId"`
	MerchVariantItemID int64   `json:"merchVariantItemId"`
	Quantity           int     `json:"quantity"`
	TotalPrice         float64 `json:"totalPrice"`
	OrderStatus        string  `json:"orderStatus"`
}

func (d orderDTO) toDomain() merch.Order {
	return merch.Order{
		OrderID:            d.OrderID,
		StudentID:          d.StudentID,
		MerchVariantItemID: d.MerchVariantItemID,
		Quantity:           d.Quantity,
		TotalPrice:         d.TotalPrice,
		Status:             d.OrderStatus,
	}
}
