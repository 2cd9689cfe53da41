// Package taskfile загружает списки задач из файлов.
//
// Поддерживаемые форматы:
//   - .json — массив задач или объект {"tasks": [...]}
//   - .hcl  — блоки task "<id>" { duration = 3  dependencies = ["A"] }
//
// Загрузчик не валидирует задачи: это делает engine.Validate,
// поэтому ошибки во входных данных описываются одинаково
// независимо от источника.
package taskfile
