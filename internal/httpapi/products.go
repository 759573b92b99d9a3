package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"tienda-be/internal/apperr"
	"tienda-be/internal/logger"
	"tienda-be/internal/product"
	"tienda-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var createdMessage = map[product.Class]string{
	product.ClassGeneral:    "Producto general creado",
	product.ClassCollection: "Producto de colección creado",
}

func (a *API) listProducts(class product.Class) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := a.products.List(r.Context(), class)
		if err != nil {
			writeError(w, r, err)
			return
		}
		utils.WriteJSON(w, http.StatusOK, products)
	}
}

func (a *API) createProduct(class product.Class) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, imageRef, err := a.readProductForm(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		id, err := a.products.Create(r.Context(), input, class, imageRef)
		if err != nil {
			writeError(w, r, err)
			return
		}

		a.metrics.ProductCreated(string(class))
		utils.WriteJSON(w, http.StatusCreated, createdResponse{ID: id, Message: createdMessage[class]})
	}
}

// replaceProduct swaps the product for a new one built from the form. The
// response carries the new id.
func (a *API) replaceProduct(class product.Class) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := utils.ParseID(chi.URLParam(r, "id"))
		if !ok {
			writeError(w, r, product.ErrProductNotFound)
			return
		}

		input, imageRef, err := a.readProductForm(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		newID, err := a.products.Replace(r.Context(), id, input, class, imageRef)
		if err != nil {
			writeError(w, r, err)
			return
		}

		a.metrics.ProductReplaced(string(class))
		utils.WriteJSON(w, http.StatusOK, createdResponse{ID: newID, Message: "Producto actualizado"})
	}
}

// deleteProduct removes by id; a nil class matches products of any class.
func (a *API) deleteProduct(class *product.Class) http.HandlerFunc {
	message := "Producto eliminado"
	label := "any"
	if class != nil {
		label = string(*class)
		if *class == product.ClassCollection {
			message = "Producto de colección eliminado"
		}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := utils.ParseID(chi.URLParam(r, "id"))
		if !ok {
			writeError(w, r, product.ErrProductNotFound)
			return
		}

		if err := a.products.Delete(r.Context(), id, class); err != nil {
			writeError(w, r, err)
			return
		}

		a.metrics.ProductDeleted(label)
		utils.WriteJSON(w, http.StatusOK, messageResponse{Message: message})
	}
}

// readProductForm parses the product fields from a multipart or urlencoded
// body. The optional "imagen" file is stored only after the fields are
// known to be valid.
func (a *API) readProductForm(r *http.Request) (product.NewProductInput, *string, error) {
	var input product.NewProductInput

	isMultipart := strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
	if isMultipart {
		if err := r.ParseMultipartForm(a.opts.MaxUploadMemory); err != nil {
			return input, nil, apperr.Validationf("formulario inválido: %v", err)
		}
		defer r.MultipartForm.RemoveAll()
	} else if err := r.ParseForm(); err != nil {
		return input, nil, apperr.Validationf("formulario inválido: %v", err)
	}

	input.Name = r.FormValue("nombre")
	input.Description = r.FormValue("descripcion")
	input.Category = r.FormValue("categoria")

	if raw := strings.TrimSpace(r.FormValue("precio")); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return input, nil, apperr.Validationf("precio inválido: %q", raw)
		}
		input.Price = price
	}
	if raw := strings.TrimSpace(r.FormValue("stock")); raw != "" {
		stock, err := strconv.Atoi(raw)
		if err != nil {
			return input, nil, apperr.Validationf("stock inválido: %q", raw)
		}
		input.Stock = stock
	}

	if err := input.Validate(); err != nil {
		return input, nil, err
	}

	if !isMultipart || a.blobs == nil {
		return input, nil, nil
	}

	file, header, err := r.FormFile("imagen")
	if errors.Is(err, http.ErrMissingFile) {
		return input, nil, nil
	}
	if err != nil {
		return input, nil, apperr.Validationf("imagen inválida: %v", err)
	}
	defer file.Close()

	ref, err := a.blobs.Save(r.Context(), header.Filename, file)
	if err != nil {
		logger.FromCtx(r.Context()).Error("failed to store image", zap.String("filename", header.Filename), zap.Error(err))
		return input, nil, err
	}
	return input, utils.StrPtr(ref), nil
}
