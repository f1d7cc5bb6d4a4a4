package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// CargarConfiguracion decodifica el JSON de filePath sobre config, que debe ser un puntero.
func CargarConfiguracion(filePath string, config any) error {
	configFile, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("abrir configuración %s: %w", filePath, err)
	}
	defer func() {
		_ = configFile.Close()
	}()

	jsonParser := json.NewDecoder(configFile)
	if err = jsonParser.Decode(config); err != nil {
		return fmt.Errorf("decodificar configuración %s: %w", filePath, err)
	}

	return nil
}

// IniciarConfiguracion es la variante usada al arrancar: sin configuración no hay nada que simular.
func IniciarConfiguracion(filePath string, config any) any {
	if err := CargarConfiguracion(filePath, config); err != nil {
		slog.Error("Error al cargar el archivo de configuración",
			slog.Attr{Key: "filePath", Value: slog.StringValue(filePath)},
			slog.Attr{Key: "error", Value: slog.StringValue(err.Error())},
		)
		panic(err)
	}

	return config
}
