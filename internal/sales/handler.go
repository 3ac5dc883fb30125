package sales

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"lokanta-backend/internal/audit"
	"lokanta-backend/internal/auth"
	"lokanta-backend/internal/core"
	"lokanta-backend/internal/database"
	"lokanta-backend/internal/logger"
	"lokanta-backend/internal/models"
)

type CreateOrderRequest struct {
	BranchID  *uuid.UUID       `json:"branch_id"` // super_admin için zorunlu
	OrderType models.OrderType `json:"order_type"`
	Note      string           `json:"note"`
}

type AddItemRequest struct {
	FoodID uuid.UUID `json:"food_id"`
	Qty    int       `json:"qty"`
}

type PayOrderRequest struct {
	AccountID uuid.UUID `json:"account_id"`
	Amount    int64     `json:"amount"` // kuruş
	Note      string    `json:"note"`
}

type OrderItemResponse struct {
	ID        uuid.UUID `json:"id"`
	FoodID    uuid.UUID `json:"food_id"`
	FoodName  string    `json:"food_name"`
	Qty       int       `json:"qty"`
	UnitPrice int64     `json:"unit_price"`
	LineTotal int64     `json:"line_total"`
}

type OrderPaymentResponse struct {
	ID        uuid.UUID  `json:"id"`
	AccountID uuid.UUID  `json:"account_id"`
	Amount    int64      `json:"amount"`
	CashTxnID *uuid.UUID `json:"cash_txn_id"`
	CreatedAt string     `json:"created_at"`
}

type OrderResponse struct {
	ID           uuid.UUID          `json:"id"`
	BranchID     uuid.UUID          `json:"branch_id"`
	OrderType    models.OrderType   `json:"order_type"`
	Status       models.OrderStatus `json:"status"`
	Note         string             `json:"note"`
	IsDelivered  bool               `json:"is_delivered"`
	StockApplied bool               `json:"stock_applied"`
	IsLocked     bool               `json:"is_locked"`
	TotalAmount  int64              `json:"total_amount"`
	PaidAmount   int64              `json:"paid_amount"`
	CogsAmount   int64              `json:"cogs_amount"`
	ProfitAmount int64              `json:"profit_amount"`
	CreatedAt    string             `json:"created_at"`

	Items    []OrderItemResponse    `json:"items,omitempty"`
	Payments []OrderPaymentResponse `json:"payments,omitempty"`
}

func orderResponse(o *models.Order, withDetail bool) OrderResponse {
	res := OrderResponse{
		ID:           o.ID,
		BranchID:     o.BranchID,
		OrderType:    o.OrderType,
		Status:       o.Status,
		Note:         o.Note,
		IsDelivered:  o.IsDelivered,
		StockApplied: o.StockApplied,
		IsLocked:     o.IsLocked,
		TotalAmount:  o.TotalAmount,
		PaidAmount:   o.PaidAmount,
		CogsAmount:   o.CogsAmount,
		ProfitAmount: o.ProfitAmount,
		CreatedAt:    o.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if !withDetail {
		return res
	}
	for _, it := range o.Items {
		res.Items = append(res.Items, OrderItemResponse{
			ID:        it.ID,
			FoodID:    it.FoodID,
			FoodName:  it.Food.Name,
			Qty:       it.Qty,
			UnitPrice: it.UnitPrice,
			LineTotal: it.LineTotal,
		})
	}
	for _, p := range o.Payments {
		res.Payments = append(res.Payments, OrderPaymentResponse{
			ID:        p.ID,
			AccountID: p.AccountID,
			Amount:    p.Amount,
			CashTxnID: p.CashTxnID,
			CreatedAt: p.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return res
}

func reloadOrder(id uuid.UUID) (*models.Order, error) {
	var o models.Order
	if err := database.DB.Preload("Items.Food").Preload("Payments").
		First(&o, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Sipariş bulunamadı")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Sipariş okunamadı")
	}
	return &o, nil
}

func writeOrderAudit(c *fiber.Ctx, o *models.Order, action models.AuditAction, desc string) {
	userID, userName, err := auth.UserInfo(c)
	if err != nil {
		return
	}
	if logErr := audit.WriteLog(database.DB, audit.LogOptions{
		BranchID:    &o.BranchID,
		UserID:      userID,
		UserName:    userName,
		EntityType:  "order",
		EntityID:    o.ID,
		Action:      action,
		Description: desc,
		After:       orderResponse(o, false),
	}); logErr != nil {
		logger.L().Warn("audit log yazılamadı", zap.Error(logErr))
	}
}

// -------------------------------------------------
// POST /api/orders
// -------------------------------------------------
func CreateOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		branchID, err := auth.ResolveBranchIDFromBodyOrRole(c, body.BranchID)
		if err != nil {
			return err
		}

		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		order, sErr := CreateOrder(database.DB, CreateOrderInput{
			BranchID:  branchID,
			OrderType: body.OrderType,
			Note:      body.Note,
		}, actor)
		if sErr != nil {
			return core.HTTPError(sErr)
		}

		writeOrderAudit(c, order, models.AuditActionCreate, "Sipariş açıldı")

		return c.Status(fiber.StatusCreated).JSON(orderResponse(order, true))
	}
}

// -------------------------------------------------
// GET /api/orders?status=draft&branch_id=...
// -------------------------------------------------
func ListOrdersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchIDFromQueryOrRole(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Where("branch_id = ?", branchID)
		if status := c.Query("status"); status != "" {
			dbq = dbq.Where("status = ?", status)
		}
		if c.Query("undelivered") == "true" {
			dbq = dbq.Where("is_delivered = ?", false)
		}

		var orders []models.Order
		if err := dbq.Order("created_at desc").Limit(200).Find(&orders).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Siparişler listelenemedi")
		}

		res := make([]OrderResponse, 0, len(orders))
		for i := range orders {
			res = append(res, orderResponse(&orders[i], false))
		}

		return c.JSON(res)
	}
}

// -------------------------------------------------
// GET /api/orders/:id
// -------------------------------------------------
func GetOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "id geçersiz")
		}

		order, err := reloadOrder(id)
		if err != nil {
			return err
		}

		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		if !actor.Scope.CanAccessBranch(order.BranchID) {
			return fiber.NewError(fiber.StatusForbidden, "Bu sipariş başka bir şubeye ait")
		}

		return c.JSON(orderResponse(order, true))
	}
}

// -------------------------------------------------
// POST /api/orders/:id/items
// -------------------------------------------------
func AddOrderItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "id geçersiz")
		}

		var body AddItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		if _, sErr := AddItem(database.DB, orderID, body.FoodID, body.Qty, actor); sErr != nil {
			return core.HTTPError(sErr)
		}

		order, err := reloadOrder(orderID)
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(orderResponse(order, true))
	}
}

// -------------------------------------------------
// DELETE /api/orders/:id/items/:itemID
// -------------------------------------------------
func RemoveOrderItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "id geçersiz")
		}
		itemID, err := uuid.Parse(c.Params("itemID"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "itemID geçersiz")
		}

		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		if sErr := RemoveItem(database.DB, orderID, itemID, actor); sErr != nil {
			return core.HTTPError(sErr)
		}

		order, err := reloadOrder(orderID)
		if err != nil {
			return err
		}

		return c.JSON(orderResponse(order, true))
	}
}

// -------------------------------------------------
// POST /api/orders/:id/pay
// -------------------------------------------------
func PayOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "id geçersiz")
		}

		var body PayOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		payment, sErr := PayOrder(database.DB, orderID, body.AccountID, body.Amount, body.Note, actor)
		if sErr != nil {
			return core.HTTPError(sErr)
		}

		order, err := reloadOrder(orderID)
		if err != nil {
			return err
		}

		writeOrderAudit(c, order, models.AuditActionUpdate,
			fmt.Sprintf("Ödeme alındı: %d kuruş", payment.Amount))

		return c.Status(fiber.StatusCreated).JSON(orderResponse(order, true))
	}
}

// -------------------------------------------------
// POST /api/orders/:id/deliver
// -------------------------------------------------
func DeliverOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "id geçersiz")
		}

		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		if _, sErr := MarkDelivered(database.DB, orderID, actor); sErr != nil {
			return core.HTTPError(sErr)
		}

		order, err := reloadOrder(orderID)
		if err != nil {
			return err
		}

		writeOrderAudit(c, order, models.AuditActionUpdate, "Sipariş teslim edildi")

		return c.JSON(orderResponse(order, true))
	}
}

// -------------------------------------------------
// POST /api/orders/:id/cancel
// -------------------------------------------------
func CancelOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "id geçersiz")
		}

		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		if _, sErr := CancelOrder(database.DB, orderID, actor); sErr != nil {
			return core.HTTPError(sErr)
		}

		order, err := reloadOrder(orderID)
		if err != nil {
			return err
		}

		writeOrderAudit(c, order, models.AuditActionUpdate, "Sipariş iptal edildi")

		return c.JSON(orderResponse(order, true))
	}
}
