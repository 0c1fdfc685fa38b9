package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"techstock/internal/domain"
	applog "techstock/internal/log"
	"techstock/internal/repos"
)

type InventoryHandler struct {
	Equipment *repos.EquipmentRepo
}

// GET /api/v1/stock/:table
func (h *InventoryHandler) Recent(c *fiber.Ctx) error {
	table := domain.DestinationTable(strings.TrimSpace(c.Params("table")))
	known := false
	for _, t := range domain.Tables {
		if t == table {
			known = true
		}
	}
	if !known {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unknown stock table",
		})
	}

	rows, err := h.Equipment.Recent(c.UserContext(), table, c.QueryInt("limit", 50))
	if err != nil {
		applog.Error(c, "stock.list.fail", err, map[string]any{"table": string(table)})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "could not load stock",
		})
	}
	return c.JSON(fiber.Map{"table": table, "rows": rows})
}

// GET /api/v1/stock/serial/:serial
func (h *InventoryHandler) SerialExists(c *fiber.Ctx) error {
	serial := strings.TrimSpace(c.Params("serial"))
	if serial == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing serial"})
	}
	exists, err := h.Equipment.SerialExists(c.UserContext(), serial)
	if err != nil {
		applog.Error(c, "stock.serial.check.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not check serial"})
	}
	return c.JSON(fiber.Map{"serial": serial, "exists": exists})
}
