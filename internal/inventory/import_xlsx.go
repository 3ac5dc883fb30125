package inventory

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"lokanta-backend/internal/auth"
	"lokanta-backend/internal/database"
	"lokanta-backend/internal/models"
)

// normalizeTurkish: Türkçe karakterleri ASCII karşılıklarına çevirir
// Örn: "KAŞAR PEYNİRİ" -> "kasar peyniri"
func normalizeTurkish(s string) string {
	replacements := map[rune]string{
		'ç': "c", 'Ç': "C",
		'ğ': "g", 'Ğ': "G",
		'ı': "i", 'İ': "I",
		'ö': "o", 'Ö': "O",
		'ş': "s", 'Ş': "S",
		'ü': "u", 'Ü': "U",
	}

	var result strings.Builder
	for _, r := range s {
		if replacement, ok := replacements[r]; ok {
			result.WriteString(replacement)
		} else {
			result.WriteRune(r)
		}
	}
	return strings.ToLower(result.String())
}

var quantitySuffixRe = regexp.MustCompile(`\s+[\d.,]+?\s*(?:kg|gr|lt|ml|g|l)\s*$`)
var numericWordRe = regexp.MustCompile(`^[\d.,]+\s*(?:kg|gr|lt|ml|g|l)?$`)

// normalizeProductName: ürün adını eşleştirme için normalleştirir,
// sondaki miktar bilgilerini (1KG, 500GR vb.) kaldırır
func normalizeProductName(s string) string {
	normalized := quantitySuffixRe.ReplaceAllString(normalizeTurkish(s), "")

	words := strings.Fields(normalized)
	cleaned := make([]string, 0, len(words))
	for _, word := range words {
		switch word {
		case "kg", "gr", "lt", "ml", "g", "l":
			continue
		}
		if numericWordRe.MatchString(word) {
			continue
		}
		cleaned = append(cleaned, word)
	}

	return strings.TrimSpace(strings.Join(cleaned, " "))
}

// parseMoneyCell: "1.234,56" veya "1234.56" biçimindeki TL tutarını kuruşa çevirir.
func parseMoneyCell(s string) (int64, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.ReplaceAll(cleaned, "₺", "")
	cleaned = strings.ReplaceAll(cleaned, "TL", "")

	// Türkçe biçim: binlik ayırıcı nokta, ondalık virgül
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, err
	}
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}

func parseQtyCell(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}
	return decimal.NewFromString(cleaned)
}

// -------------------------------------------------
// POST /api/stock-imports/upload
// XLSX'ten taslak stok girişi oluşturur.
// Kolonlar: ÜRÜN ADI | MİKTAR | TOPLAM TUTAR
// -------------------------------------------------
func UploadImportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchIDFromQueryOrRole(c)
		if err != nil {
			return err
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Dosya yüklenemedi: "+err.Error())
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "Sadece .xlsx dosyaları yüklenebilir")
		}

		file, err := fileHeader.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Dosya açılamadı: "+err.Error())
		}
		defer file.Close()

		excelFile, err := excelize.OpenReader(file)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Excel dosyası okunamadı: "+err.Error())
		}
		defer excelFile.Close()

		sheetList := excelFile.GetSheetList()
		if len(sheetList) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Excel dosyasında sheet bulunamadı")
		}

		rows, err := excelFile.GetRows(sheetList[0])
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Sheet okunamadı: "+err.Error())
		}
		if len(rows) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Excel dosyası boş")
		}

		// Başlık satırı algılama: ilk hücrede "ÜRÜN" / "PRODUCT" geçiyorsa atla
		startIndex := 0
		if len(rows[0]) > 0 {
			firstCell := strings.ToUpper(strings.TrimSpace(rows[0][0]))
			if strings.Contains(firstCell, "ÜRÜN") || strings.Contains(firstCell, "PRODUCT") {
				startIndex = 1
			}
		}

		// Eşleştirme tablosunu bir kez kur
		var products []models.Product
		if err := database.DB.Where("is_active = ?", true).Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürünler okunamadı")
		}
		byName := make(map[string]*models.Product, len(products))
		bySKU := make(map[string]*models.Product)
		for i := range products {
			p := &products[i]
			byName[normalizeProductName(p.Name)] = p
			if p.SKU != nil && *p.SKU != "" {
				bySKU[normalizeTurkish(*p.SKU)] = p
			}
		}

		type parsedLine struct {
			product *models.Product
			qty     decimal.Decimal
			cost    int64
		}
		lines := make([]parsedLine, 0, len(rows))
		unmatched := make([]string, 0)
		badRows := make([]string, 0)

		for i := startIndex; i < len(rows); i++ {
			row := rows[i]
			if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
				continue
			}
			name := strings.TrimSpace(row[0])

			product, ok := byName[normalizeProductName(name)]
			if !ok {
				product, ok = bySKU[normalizeTurkish(name)]
			}
			if !ok || product == nil {
				unmatched = append(unmatched, name)
				continue
			}

			if len(row) < 3 {
				badRows = append(badRows, fmt.Sprintf("satır %d: miktar/tutar eksik", i+1))
				continue
			}
			qty, err := parseQtyCell(row[1])
			if err != nil || !qty.IsPositive() {
				badRows = append(badRows, fmt.Sprintf("satır %d: miktar geçersiz (%s)", i+1, row[1]))
				continue
			}
			cost, err := parseMoneyCell(row[2])
			if err != nil || cost < 0 {
				badRows = append(badRows, fmt.Sprintf("satır %d: tutar geçersiz (%s)", i+1, row[2]))
				continue
			}

			lines = append(lines, parsedLine{product: product, qty: qty, cost: cost})
		}

		if len(lines) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Eşleşen geçerli satır bulunamadı")
		}

		si := models.StockImport{
			BranchID: branchID,
			Status:   models.ImportStatusDraft,
			Note:     "XLSX: " + fileHeader.Filename,
		}
		if userID, _, uErr := auth.UserInfo(c); uErr == nil {
			si.CreatedByID = &userID
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&si).Error; err != nil {
				return err
			}
			for _, ln := range lines {
				item := models.StockImportItem{
					StockImportID: si.ID,
					ProductID:     ln.product.ID,
					Qty:           ln.qty,
					LineTotalCost: ln.cost,
				}
				// Aynı ürün birden çok satırda: miktar ve tutar toplanır
				var existing models.StockImportItem
				findErr := tx.First(&existing, "stock_import_id = ? AND product_id = ?", si.ID, ln.product.ID).Error
				if findErr == nil {
					existing.Qty = existing.Qty.Add(ln.qty)
					existing.LineTotalCost += ln.cost
					if err := tx.Save(&existing).Error; err != nil {
						return err
					}
					continue
				}
				if err := tx.Create(&item).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Stok girişi oluşturulamadı")
		}

		var created models.StockImport
		if err := database.DB.Preload("Items.Product").First(&created, "id = ?", si.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Stok girişi okunamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"import":             importResponse(&created, true),
			"matched_count":      len(lines),
			"unmatched_products": unmatched,
			"skipped_rows":       badRows,
		})
	}
}
