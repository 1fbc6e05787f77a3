package api

import (
	"fmt"
	"net/http"
	"time"

	"standoff-tracker/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportCatalog streams the full catalog plus the active boost set as an
// xlsx workbook.
func (h *APIHandler) ExportCatalog(c *gin.Context) {
	var items []models.Item
	if err := h.db.Preload("Collection").Order("id asc").Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	const catalogSheet = "Catalog"
	f.SetSheetName("Sheet1", catalogSheet)
	headers := []string{"ID", "Name", "Skin", "Type", "Rarity", "StatTrack", "Collection", "Price", "Last Update"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(catalogSheet, cell, header)
	}
	for row, item := range items {
		collection := ""
		if item.Collection != nil {
			collection = item.Collection.Name
		}
		lastUpdate := ""
		if !item.LastUpdate.IsZero() {
			lastUpdate = item.LastUpdate.Format(time.RFC3339)
		}
		values := []interface{}{
			item.ID,
			item.Name,
			item.SkinName,
			item.Type.String(),
			item.Rarity.String(),
			item.IsStatTrack,
			collection,
			item.CurrentPrice.StringFixed(2),
			lastUpdate,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(catalogSheet, cell, v)
		}
	}

	const boostSheet = "Boosts"
	f.NewSheet(boostSheet)
	boostHeaders := []string{"Item ID", "Name", "Baseline", "Current", "Growth %", "Detected At"}
	for i, header := range boostHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(boostSheet, cell, header)
	}
	for row, rec := range h.boostCache.Load() {
		name := rec.Name
		if rec.SkinName != "" {
			name += " " + rec.SkinName
		}
		values := []interface{}{
			rec.ItemID,
			name,
			rec.BaselinePrice.StringFixed(2),
			rec.CurrentPrice.StringFixed(2),
			rec.GrowthPercent,
			rec.DetectedAt.Format(time.RFC3339),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(boostSheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	filename := fmt.Sprintf("catalog_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
