package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/tubtip/tubtip/app/models"
	"github.com/tubtip/tubtip/app/repository"
	"github.com/tubtip/tubtip/internal/pkg/apperror"
)

type GenreInput struct {
	Name string `json:"name" form:"name" validate:"required,min=1,max=100"`
}

func (in *GenreInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	if err := models.Validate.Struct(in); err != nil {
		return apperror.FromValidator(err)
	}
	return nil
}

func genreError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperror.NotFound("Genre not found")
	case errors.Is(err, repository.ErrConflict):
		return apperror.ConflictField("name", "Genre already exists")
	default:
		return apperror.Internal(err)
	}
}

func (h *Controller) HandleCreateGenre(c *fiber.Ctx) error {
	var in GenreInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	if err := in.normalize(); err != nil {
		return err
	}
	genre := &models.Genre{Name: in.Name}
	if err := h.Genres.Create(c.UserContext(), genre); err != nil {
		return genreError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(genre)
}

func (h *Controller) HandleListGenres(c *fiber.Ctx) error {
	genres, err := h.Genres.List(c.UserContext())
	if err != nil {
		return apperror.Internal(err)
	}
	if genres == nil {
		genres = []models.Genre{}
	}
	return c.JSON(genres)
}

func (h *Controller) HandleGetGenre(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	genre, err := h.Genres.GetByID(c.UserContext(), id)
	if err != nil {
		return genreError(err)
	}
	return c.JSON(genre)
}

func (h *Controller) HandleUpdateGenre(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in GenreInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	if err := in.normalize(); err != nil {
		return err
	}
	genre, err := h.Genres.GetByID(c.UserContext(), id)
	if err != nil {
		return genreError(err)
	}
	genre.Name = in.Name
	if err := h.Genres.Update(c.UserContext(), genre); err != nil {
		return genreError(err)
	}
	return c.JSON(genre)
}

// HandleDeleteGenre returns the deleted row.
func (h *Controller) HandleDeleteGenre(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	genre, err := h.Genres.GetByID(c.UserContext(), id)
	if err != nil {
		return genreError(err)
	}
	if err := h.Genres.Delete(c.UserContext(), id); err != nil {
		return genreError(err)
	}
	return c.JSON(genre)
}
